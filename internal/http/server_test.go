package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/ratelimit"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/walletauth"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/watermark"
	"github.com/Venkey2238/blockchain-evidence/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testWallet   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	viewerWallet = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

// stubVerifier accepts any request whose signature header equals "valid" and
// returns the claimed wallet lower-cased, mirroring the production contract.
type stubVerifier struct {
	rejectWith error
}

func (v stubVerifier) Verify(_ context.Context, req walletauth.Request) (string, error) {
	if v.rejectWith != nil {
		return "", v.rejectWith
	}
	if req.Signature == "" || req.Message == "" {
		return "", evidence.ErrMissingCredentials
	}
	if req.Signature != "valid" {
		return "", evidence.ErrInvalidSignature
	}
	return strings.ToLower(req.ClaimedWallet), nil
}

type memRecords struct {
	mu      sync.Mutex
	records map[string]evidence.Record
	nextID  int
}

func newMemRecords() *memRecords {
	return &memRecords{records: map[string]evidence.Record{}}
}

func (m *memRecords) Create(_ context.Context, rec evidence.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = fmt.Sprintf("ev-%d", m.nextID)
	if rec.Status == "" {
		rec.Status = evidence.StatusPending
	}
	rec.CreatedAt = time.Now().UTC()
	m.records[rec.ID] = rec
	return rec.ID, nil
}

func (m *memRecords) Get(_ context.Context, id string) (evidence.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return evidence.Record{}, evidence.ErrNotFound
	}
	return rec, nil
}

func (m *memRecords) ListByIDs(_ context.Context, ids []string) ([]evidence.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []evidence.Record
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memRecords) List(_ context.Context, filter evidence.ListFilter) ([]evidence.Record, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []evidence.Record
	for _, rec := range m.records {
		if filter.CaseID != "" && rec.CaseID != filter.CaseID {
			continue
		}
		out = append(out, rec)
	}
	return out, int64(len(out)), nil
}

func (m *memRecords) ListByCase(_ context.Context, caseID string) ([]evidence.Record, error) {
	out, _, err := m.List(context.Background(), evidence.ListFilter{CaseID: caseID})
	return out, err
}

func (m *memRecords) AttachBackendRefs(_ context.Context, id string, blobRef string, receipt *evidence.LedgerReceipt) (evidence.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return evidence.Record{}, evidence.ErrNotFound
	}
	if rec.BlobRef == "" && blobRef != "" {
		rec.BlobRef = blobRef
	}
	if rec.LedgerTxID == "" && receipt != nil {
		rec.LedgerTxID = receipt.TxID
		rec.LedgerBlockNumber = receipt.BlockNumber
		rec.LedgerCost = receipt.Cost
	}
	rec.Status = rec.ResolveStatus()
	m.records[id] = rec
	return rec, nil
}

func (m *memRecords) MissingLedgerRef(_ context.Context, limit int) ([]evidence.Record, error) {
	return nil, nil
}

func (m *memRecords) CountByStatus(_ context.Context) (map[evidence.Status]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[evidence.Status]int64{}
	for _, rec := range m.records {
		counts[rec.Status]++
	}
	return counts, nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (m *memBlobs) Put(_ context.Context, contentHash string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := "blob/" + contentHash
	m.objects[ref] = data
	return ref, nil
}

func (m *memBlobs) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[ref]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return data, nil
}

type memLedger struct {
	anchorErr error
	proof     evidence.AnchorProof
}

func (m *memLedger) Anchor(_ context.Context, _ string, _ json.RawMessage) (evidence.LedgerReceipt, error) {
	if m.anchorErr != nil {
		return evidence.LedgerReceipt{}, m.anchorErr
	}
	return evidence.LedgerReceipt{TxID: "0xfeed", BlockNumber: 9, Cost: "21000"}, nil
}

func (m *memLedger) Verify(_ context.Context, _ string) (evidence.AnchorProof, error) {
	return m.proof, nil
}

type memUsers struct{}

func (memUsers) Lookup(_ context.Context, wallet string) (evidence.Account, error) {
	switch strings.ToLower(wallet) {
	case testWallet:
		return evidence.Account{Wallet: testWallet, Role: evidence.RoleInvestigator, Active: true}, nil
	case viewerWallet:
		return evidence.Account{Wallet: viewerWallet, Role: evidence.RoleViewer, Active: true}, nil
	default:
		return evidence.Account{}, evidence.ErrNotFound
	}
}

type memAuthz struct{}

func (memAuthz) Allow(_ context.Context, role evidence.Role, capability string) (bool, error) {
	caps := map[evidence.Role][]string{
		evidence.RoleAdmin:        {evidence.CapUpload, evidence.CapExport, evidence.CapViewHistory},
		evidence.RoleInvestigator: {evidence.CapUpload, evidence.CapExport},
		evidence.RoleAuditor:      {evidence.CapExport, evidence.CapViewHistory},
	}
	for _, c := range caps[role] {
		if c == capability {
			return true, nil
		}
	}
	return false, nil
}

type memActivity struct {
	mu      sync.Mutex
	entries []evidence.ActivityEntry
}

func (m *memActivity) Append(_ context.Context, actor, action string, details map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, evidence.ActivityEntry{Actor: actor, Action: action, Details: details})
	return nil
}

func (m *memActivity) ListDownloads(_ context.Context, evidenceID string) ([]evidence.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []evidence.ActivityEntry
	for _, e := range m.entries {
		if id, _ := e.Details["evidence_id"].(string); id == evidenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memActivity) CountSince(_ context.Context, _ time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}

type serverFixture struct {
	server  *Server
	records *memRecords
	blobs   *memBlobs
	ledger  *memLedger
}

func newServerFixture() *serverFixture {
	records := newMemRecords()
	blobs := newMemBlobs()
	ledger := &memLedger{}
	activity := &memActivity{}
	users := memUsers{}
	authz := memAuthz{}
	logger := slog.New(slog.DiscardHandler)

	ingest := usecase.NewIngestService(records, blobs, ledger, users, authz, activity, logger)
	export := usecase.NewExportService(records, blobs, watermark.NewTrailerRenderer(), users, authz, activity, logger)
	query := usecase.NewQueryService(records, users, authz, activity)

	server := NewServer(ServerDeps{
		Verifier: stubVerifier{},
		Ingest:   ingest,
		Export:   export,
		Query:    query,
		Logger:   logger,
	})
	return &serverFixture{server: server, records: records, blobs: blobs, ledger: ledger}
}

// newThrottledFixture wires a real in-memory limiter so throttling paths can
// be exercised end to end.
func newThrottledFixture(authLimit int) *serverFixture {
	fix := newServerFixture()
	fix.server.limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	fix.server.authLimitPerWindow = authLimit
	return fix
}
