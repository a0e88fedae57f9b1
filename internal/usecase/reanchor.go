package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
)

// ReanchorService re-attempts ledger anchoring for records whose anchor step
// failed during ingestion. Items run sequentially with a fixed delay between
// them to stay inside the ledger gateway's rate limits.
type ReanchorService struct {
	Records RecordStore
	Ledger  LedgerService
	Logger  *slog.Logger

	BatchSize int
	Delay     time.Duration
}

func NewReanchorService(records RecordStore, ledger LedgerService, logger *slog.Logger) *ReanchorService {
	return &ReanchorService{
		Records:   records,
		Ledger:    ledger,
		Logger:    logger,
		BatchSize: 100,
		Delay:     2 * time.Second,
	}
}

type ReanchorReport struct {
	Scanned  int
	Anchored int
	Failed   int
}

// Run scans one batch of unanchored records and anchors each in turn.
// Per-item failures are logged and counted; they never stop the batch.
func (s *ReanchorService) Run(ctx context.Context) (ReanchorReport, error) {
	records, err := s.Records.MissingLedgerRef(ctx, s.BatchSize)
	if err != nil {
		return ReanchorReport{}, err
	}

	report := ReanchorReport{Scanned: len(records)}
	for i, rec := range records {
		if i > 0 {
			if err := sleepCtx(ctx, s.Delay); err != nil {
				return report, err
			}
		}
		if err := s.anchorOne(ctx, rec); err != nil {
			report.Failed++
			s.Logger.Warn("re-anchor failed", "evidence_id", rec.ID, "error", err)
			continue
		}
		report.Anchored++
		s.Logger.Info("re-anchored", "evidence_id", rec.ID)
	}
	return report, nil
}

func (s *ReanchorService) anchorOne(ctx context.Context, rec evidence.Record) error {
	metadata, err := json.Marshal(map[string]string{
		"evidence_id": rec.ID,
		"case_id":     rec.CaseID,
		"name":        rec.Name,
		"type":        rec.Type,
		"uploaded_by": rec.SubmittedBy,
		"reanchor":    "true",
	})
	if err != nil {
		return err
	}
	receipt, err := s.Ledger.Anchor(ctx, rec.ContentHash, metadata)
	if err != nil {
		return err
	}
	_, err = s.Records.AttachBackendRefs(ctx, rec.ID, "", &receipt)
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
