package evidence

import "time"

type Status string

const (
	StatusPending           Status = "pending"
	StatusBlobStored        Status = "blob_stored"
	StatusAnchored          Status = "anchored"
	StatusPartiallyAnchored Status = "partially_anchored"
)

// Record is one submitted evidence file's lifecycle state. ContentHash is set
// at creation and never changes. BlobRef and the Ledger* fields are write-once:
// an absent ref may be filled in later, a present one is never cleared.
type Record struct {
	ID          string
	CaseID      string
	Name        string
	Type        string
	Description string
	Location    string

	ContentHash string
	MimeType    string
	SizeBytes   int64
	SubmittedBy string

	BlobRef string

	LedgerTxID        string
	LedgerBlockNumber int64
	LedgerCost        string

	Status    Status
	CreatedAt time.Time
}

// LedgerVerified reports whether the record carries a ledger reference.
// A record must never be presented as chain-verified without one.
func (r Record) LedgerVerified() bool {
	return r.LedgerTxID != ""
}

func (r Record) BlobStored() bool {
	return r.BlobRef != ""
}

// ResolveStatus derives the record status from which backend refs are present.
func (r Record) ResolveStatus() Status {
	switch {
	case r.LedgerVerified() && r.BlobStored():
		return StatusAnchored
	case r.LedgerVerified() || r.BlobStored():
		return StatusPartiallyAnchored
	default:
		return StatusPending
	}
}

// LedgerReceipt is the result of anchoring a content hash to the ledger.
type LedgerReceipt struct {
	TxID        string
	BlockNumber int64
	Cost        string
}

// AnchorProof is the ledger's answer to a verification query.
type AnchorProof struct {
	Exists      bool   `json:"exists"`
	TxID        string `json:"tx_id"`
	BlockNumber int64  `json:"block_number"`
}

// Warning records a non-fatal backend failure during ingestion or export.
type Warning struct {
	Backend string `json:"backend"`
	Message string `json:"message"`
}

const (
	BackendBlob   = "blob"
	BackendLedger = "ledger"
)

// ListFilter narrows evidence listing queries.
type ListFilter struct {
	CaseID      string
	Status      Status
	SubmittedBy string
	Limit       int
	Offset      int
}

// ActivityEntry is one append-only audit trail row.
type ActivityEntry struct {
	ID        string
	Actor     string
	Action    string
	Details   map[string]any
	Timestamp time.Time
}

const (
	ActionUpload     = "evidence_upload"
	ActionDownload   = "evidence_download"
	ActionBulkExport = "evidence_bulk_export"
)
