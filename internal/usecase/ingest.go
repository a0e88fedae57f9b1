package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/walletauth"
)

// IngestService moves one evidence file through the three backends. The
// record-store write is the only mandatory step; blob upload and ledger
// anchoring are best effort and degrade to warnings, because losing the
// durable record entirely is worse than a record that is not yet
// chain-verified.
type IngestService struct {
	Records  RecordStore
	Blobs    BlobStore
	Ledger   LedgerService
	Users    UserDirectory
	Authz    Authorizer
	Activity ActivityLog
	Logger   *slog.Logger

	Clock          func() time.Time
	BackendTimeout time.Duration
	BackendRetries int
}

func NewIngestService(records RecordStore, blobs BlobStore, ledger LedgerService, users UserDirectory, authz Authorizer, activity ActivityLog, logger *slog.Logger) *IngestService {
	return &IngestService{
		Records:        records,
		Blobs:          blobs,
		Ledger:         ledger,
		Users:          users,
		Authz:          authz,
		Activity:       activity,
		Logger:         logger,
		Clock:          time.Now,
		BackendTimeout: 15 * time.Second,
	}
}

type IngestInput struct {
	CaseID      string
	Name        string
	Type        string
	Description string
	Location    string
	MimeType    string
	Data        []byte
	Uploader    string
}

type IngestResult struct {
	Record   evidence.Record
	Warnings []evidence.Warning
}

// Ingest validates the submission, persists the record, then attempts blob
// upload and ledger anchoring. Preconditions run strictly before any backend
// is touched; a failure there leaves no trace.
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	if err := s.checkPreconditions(ctx, in); err != nil {
		return IngestResult{}, err
	}

	sum := sha256.Sum256(in.Data)
	contentHash := hex.EncodeToString(sum[:])

	rec := evidence.Record{
		CaseID:      in.CaseID,
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
		Location:    in.Location,
		ContentHash: contentHash,
		MimeType:    in.MimeType,
		SizeBytes:   int64(len(in.Data)),
		SubmittedBy: in.Uploader,
		Status:      evidence.StatusPending,
	}

	id, err := s.Records.Create(ctx, rec)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: create record: %v", evidence.ErrRecordStore, err)
	}
	rec.ID = id

	var warnings []evidence.Warning

	blobRef, err := s.storeBlob(ctx, contentHash, in.Data, in.MimeType)
	if err != nil {
		warnings = append(warnings, evidence.Warning{Backend: evidence.BackendBlob, Message: err.Error()})
		s.Logger.Warn("blob upload failed", "evidence_id", id, "error", err)
	}

	receipt, err := s.anchorHash(ctx, id, rec, contentHash)
	if err != nil {
		warnings = append(warnings, evidence.Warning{Backend: evidence.BackendLedger, Message: err.Error()})
		s.Logger.Warn("ledger anchor failed", "evidence_id", id, "error", err)
	}

	updated, err := s.Records.AttachBackendRefs(ctx, id, blobRef, receipt)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: finalize record %s: %v", evidence.ErrRecordStore, id, err)
	}

	s.logActivity(ctx, in.Uploader, evidence.ActionUpload, map[string]any{
		"evidence_id":  id,
		"case_id":      in.CaseID,
		"content_hash": contentHash,
		"status":       string(updated.Status),
		"warnings":     len(warnings),
	})

	return IngestResult{Record: updated, Warnings: warnings}, nil
}

// checkPreconditions fails fast, in a fixed order, before any backend call.
func (s *IngestService) checkPreconditions(ctx context.Context, in IngestInput) error {
	if !walletauth.ValidAddress(in.Uploader) {
		return evidence.ErrInvalidWallet
	}
	if in.CaseID == "" || in.Name == "" || in.Type == "" || len(in.Data) == 0 {
		return evidence.ErrMissingFields
	}

	account, err := s.Users.Lookup(ctx, in.Uploader)
	if err != nil {
		return err
	}
	if !account.Active {
		return evidence.ErrForbidden
	}
	allowed, err := s.Authz.Allow(ctx, account.Role, evidence.CapUpload)
	if err != nil {
		return err
	}
	if !allowed {
		return evidence.ErrForbidden
	}

	maxSize, ok := evidence.MaxSizeBytes(in.MimeType)
	if !ok {
		return fmt.Errorf("%w: %s", evidence.ErrUnsupportedType, in.MimeType)
	}
	if int64(len(in.Data)) > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds limit for %s", evidence.ErrFileTooLarge, len(in.Data), in.MimeType)
	}
	return nil
}

func (s *IngestService) storeBlob(ctx context.Context, contentHash string, data []byte, mimeType string) (string, error) {
	var ref string
	err := s.withBackendBudget(ctx, func(ctx context.Context) error {
		var err error
		ref, err = s.Blobs.Put(ctx, contentHash, data, mimeType)
		return err
	})
	return ref, err
}

func (s *IngestService) anchorHash(ctx context.Context, id string, rec evidence.Record, contentHash string) (*evidence.LedgerReceipt, error) {
	metadata, err := json.Marshal(map[string]string{
		"evidence_id": id,
		"case_id":     rec.CaseID,
		"name":        rec.Name,
		"type":        rec.Type,
		"uploaded_by": rec.SubmittedBy,
	})
	if err != nil {
		return nil, err
	}
	var receipt evidence.LedgerReceipt
	err = s.withBackendBudget(ctx, func(ctx context.Context) error {
		var err error
		receipt, err = s.Ledger.Anchor(ctx, contentHash, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// withBackendBudget runs one best-effort backend call under the configured
// timeout, retrying up to BackendRetries extra attempts. Retries stop as soon
// as the parent context is done.
func (s *IngestService) withBackendBudget(ctx context.Context, call func(ctx context.Context) error) error {
	attempts := 1 + s.BackendRetries
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		attemptCtx := ctx
		cancel := func() {}
		if s.BackendTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, s.BackendTimeout)
		}
		lastErr = call(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// VerifyAnchor asks the ledger whether the record's content hash is anchored.
func (s *IngestService) VerifyAnchor(ctx context.Context, evidenceID string) (evidence.AnchorProof, error) {
	rec, err := s.Records.Get(ctx, evidenceID)
	if err != nil {
		return evidence.AnchorProof{}, err
	}
	return s.Ledger.Verify(ctx, rec.ContentHash)
}

// logActivity appends an audit row; failure never fails the calling flow.
func (s *IngestService) logActivity(ctx context.Context, actor, action string, details map[string]any) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Append(ctx, actor, action, details); err != nil {
		s.Logger.Error("activity log append failed", "action", action, "error", err)
	}
}
