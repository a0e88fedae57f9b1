package usecase

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/walletauth"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/watermark"
)

// MaxBundleItems bounds one bulk export request.
const MaxBundleItems = 50

const manifestName = "export_metadata.json"

// ExportService produces watermarked single downloads and bulk zip bundles.
// Bundles follow the same partial-failure discipline as ingestion: an
// unreachable blob skips that entry, it never aborts the archive.
type ExportService struct {
	Records   RecordStore
	Blobs     BlobStore
	Watermark WatermarkRenderer
	Users     UserDirectory
	Authz     Authorizer
	Activity  ActivityLog
	Logger    *slog.Logger

	Clock func() time.Time
}

func NewExportService(records RecordStore, blobs BlobStore, wm WatermarkRenderer, users UserDirectory, authz Authorizer, activity ActivityLog, logger *slog.Logger) *ExportService {
	return &ExportService{
		Records:   records,
		Blobs:     blobs,
		Watermark: wm,
		Users:     users,
		Authz:     authz,
		Activity:  activity,
		Logger:    logger,
		Clock:     time.Now,
	}
}

// ExportFile is one watermarked download, with the header values the HTTP
// layer attaches to the response.
type ExportFile struct {
	Data             []byte
	ContentType      string
	Filename         string
	WatermarkApplied bool
	DownloadedBy     string
}

// ExportOne fetches, watermarks, and returns a single evidence payload.
func (s *ExportService) ExportOne(ctx context.Context, evidenceID, requester string) (ExportFile, error) {
	if err := s.authorize(ctx, requester); err != nil {
		return ExportFile{}, err
	}

	rec, err := s.Records.Get(ctx, evidenceID)
	if err != nil {
		return ExportFile{}, err
	}
	if !rec.BlobStored() {
		return ExportFile{}, fmt.Errorf("%w: evidence %s has no stored payload", evidence.ErrNotFound, evidenceID)
	}

	data, err := s.Blobs.Get(ctx, rec.BlobRef)
	if err != nil {
		return ExportFile{}, fmt.Errorf("%w: fetch payload for %s", evidence.ErrNotFound, evidenceID)
	}

	now := s.Clock()
	marked, applied, err := s.Watermark.Apply(ctx, data, rec.MimeType, watermark.Stamp{
		EvidenceID: rec.ID,
		CaseID:     rec.CaseID,
		Wallet:     requester,
		At:         now,
	})
	if err != nil {
		s.Logger.Warn("watermark failed, serving original", "evidence_id", rec.ID, "error", err)
		marked, applied = data, false
	}

	s.logActivity(ctx, requester, evidence.ActionDownload, map[string]any{
		"evidence_id": rec.ID,
		"case_id":     rec.CaseID,
		"watermark":   applied,
	})

	return ExportFile{
		Data:             marked,
		ContentType:      rec.MimeType,
		Filename:         exportFilename(rec),
		WatermarkApplied: applied,
		DownloadedBy:     TruncateWallet(requester),
	}, nil
}

// exportFilename names the download copy so it cannot be mistaken for the
// original.
func exportFilename(rec evidence.Record) string {
	if rec.Name == "" {
		return fmt.Sprintf("evidence_%s_watermarked", rec.ID)
	}
	return "watermarked_" + rec.Name
}

// bundleState tracks the zip stream. Entries are only written in the
// WritingManifest and WritingItems states; Close runs exactly once, in
// Finalizing, so a partial failure still yields a valid archive.
type bundleState int

const (
	bundleIdle bundleState = iota
	bundleWritingManifest
	bundleWritingItems
	bundleFinalizing
	bundleDone
	bundleFailed
)

// BundleSummary reports what actually landed in the archive.
type BundleSummary struct {
	Written    int
	Requested  int
	Skipped    []evidence.Warning
	ExportedBy string
}

type manifestItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CaseID      string `json:"case_id"`
	ContentHash string `json:"content_hash"`
	Status      string `json:"status"`
}

type bundleManifest struct {
	ExportedBy string         `json:"exported_by"`
	ExportedAt time.Time      `json:"exported_at"`
	Requested  int            `json:"requested"`
	Items      []manifestItem `json:"items"`
}

// BundlePlan is a validated bulk export: ids checked, requester authorized,
// records resolved. Nothing is written until Write, so the HTTP layer can
// commit headers from the plan and then stream the archive.
type BundlePlan struct {
	svc       *ExportService
	ids       []string
	requester string
	byID      map[string]evidence.Record

	Found      int
	ExportedBy string
}

// PrepareBundle validates a bulk export request and resolves its records.
// Ids that resolve to nothing at all are a request error, not an empty
// archive.
func (s *ExportService) PrepareBundle(ctx context.Context, evidenceIDs []string, requester string) (*BundlePlan, error) {
	if len(evidenceIDs) == 0 {
		return nil, evidence.ErrNoItems
	}
	if len(evidenceIDs) > MaxBundleItems {
		return nil, fmt.Errorf("%w: %d ids, limit %d", evidence.ErrTooManyItems, len(evidenceIDs), MaxBundleItems)
	}
	if err := s.authorize(ctx, requester); err != nil {
		return nil, err
	}

	records, err := s.Records.ListByIDs(ctx, evidenceIDs)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no evidence found for the provided ids", evidence.ErrNotFound)
	}
	byID := make(map[string]evidence.Record, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	return &BundlePlan{
		svc:        s,
		ids:        evidenceIDs,
		requester:  requester,
		byID:       byID,
		Found:      len(records),
		ExportedBy: TruncateWallet(requester),
	}, nil
}

// ExportBundle prepares and writes a bundle in one call.
func (s *ExportService) ExportBundle(ctx context.Context, w io.Writer, evidenceIDs []string, requester string) (BundleSummary, error) {
	plan, err := s.PrepareBundle(ctx, evidenceIDs, requester)
	if err != nil {
		return BundleSummary{}, err
	}
	return plan.Write(ctx, w)
}

// Write streams the zip archive to w: the manifest entry first, then one
// watermarked entry per resolved id in the caller's order. Item failures
// are collected as skips; only a write error on the stream itself fails the
// bundle.
func (p *BundlePlan) Write(ctx context.Context, w io.Writer) (BundleSummary, error) {
	s, evidenceIDs, requester, byID := p.svc, p.ids, p.requester, p.byID

	now := s.Clock()
	summary := BundleSummary{
		Requested:  len(evidenceIDs),
		ExportedBy: p.ExportedBy,
	}

	state := bundleIdle
	zw := zip.NewWriter(w)

	state = bundleWritingManifest
	manifest := bundleManifest{
		ExportedBy: requester,
		ExportedAt: now.UTC(),
		Requested:  len(evidenceIDs),
	}
	for _, id := range evidenceIDs {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		manifest.Items = append(manifest.Items, manifestItem{
			ID:          rec.ID,
			Name:        rec.Name,
			CaseID:      rec.CaseID,
			ContentHash: rec.ContentHash,
			Status:      string(rec.Status),
		})
	}
	if err := s.writeManifest(zw, manifest); err != nil {
		return summary, s.failBundle(state, fmt.Errorf("write manifest: %w", err))
	}

	state = bundleWritingItems
	for _, id := range evidenceIDs {
		if err := ctx.Err(); err != nil {
			return summary, s.failBundle(state, err)
		}
		rec, ok := byID[id]
		if !ok {
			summary.Skipped = append(summary.Skipped, evidence.Warning{
				Backend: evidence.BackendBlob,
				Message: fmt.Sprintf("evidence %s not found", id),
			})
			continue
		}
		data, skip, err := s.bundleEntry(ctx, rec, requester, now)
		if skip != nil {
			summary.Skipped = append(summary.Skipped, *skip)
			s.Logger.Warn("bundle entry skipped", "evidence_id", id, "reason", skip.Message)
			continue
		}
		if err != nil {
			return summary, s.failBundle(state, err)
		}
		entry, err := zw.Create(entryName(rec, summary.Written))
		if err != nil {
			return summary, s.failBundle(state, fmt.Errorf("create entry for %s: %w", id, err))
		}
		if _, err := entry.Write(data); err != nil {
			return summary, s.failBundle(state, fmt.Errorf("write entry for %s: %w", id, err))
		}
		summary.Written++
	}

	state = bundleFinalizing
	if err := zw.Close(); err != nil {
		return summary, s.failBundle(state, fmt.Errorf("finalize archive: %w", err))
	}

	s.logActivity(ctx, requester, evidence.ActionBulkExport, map[string]any{
		"evidence_ids": evidenceIDs,
		"requested":    summary.Requested,
		"written":      summary.Written,
		"skipped":      len(summary.Skipped),
	})
	return summary, nil
}

// bundleEntry resolves one archive entry. A skip reason is a per-item
// failure; an error is a stream-level failure.
func (s *ExportService) bundleEntry(ctx context.Context, rec evidence.Record, requester string, now time.Time) ([]byte, *evidence.Warning, error) {
	if !rec.BlobStored() {
		return nil, &evidence.Warning{
			Backend: evidence.BackendBlob,
			Message: fmt.Sprintf("evidence %s has no stored payload", rec.ID),
		}, nil
	}
	data, err := s.Blobs.Get(ctx, rec.BlobRef)
	if err != nil {
		return nil, &evidence.Warning{
			Backend: evidence.BackendBlob,
			Message: fmt.Sprintf("evidence %s: %v", rec.ID, err),
		}, nil
	}
	marked, _, err := s.Watermark.Apply(ctx, data, rec.MimeType, watermark.Stamp{
		EvidenceID: rec.ID,
		CaseID:     rec.CaseID,
		Wallet:     requester,
		At:         now,
	})
	if err != nil {
		return data, nil, nil
	}
	return marked, nil, nil
}

// failBundle records a stream-level failure. Headers are usually committed
// by the time this runs, so logging is the only surface left.
func (s *ExportService) failBundle(stage bundleState, err error) error {
	s.Logger.Error("bundle stream failed", "stage", stageName(stage), "error", err)
	return err
}

func stageName(stage bundleState) string {
	switch stage {
	case bundleIdle:
		return "idle"
	case bundleWritingManifest:
		return "writing_manifest"
	case bundleWritingItems:
		return "writing_items"
	case bundleFinalizing:
		return "finalizing"
	case bundleDone:
		return "done"
	default:
		return "failed"
	}
}

func (s *ExportService) writeManifest(zw *zip.Writer, manifest bundleManifest) error {
	entry, err := zw.Create(manifestName)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	_, err = entry.Write(payload)
	return err
}

func (s *ExportService) authorize(ctx context.Context, requester string) error {
	if !walletauth.ValidAddress(requester) {
		return evidence.ErrUnauthorized
	}
	account, err := s.Users.Lookup(ctx, requester)
	if err != nil {
		return err
	}
	if !account.Active {
		return evidence.ErrForbidden
	}
	allowed, err := s.Authz.Allow(ctx, account.Role, evidence.CapExport)
	if err != nil {
		return err
	}
	if !allowed {
		return evidence.ErrForbidden
	}
	return nil
}

func (s *ExportService) logActivity(ctx context.Context, actor, action string, details map[string]any) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Append(ctx, actor, action, details); err != nil {
		s.Logger.Error("activity log append failed", "action", action, "error", err)
	}
}

// entryName keeps archive entries unique even when two records share a
// filename.
func entryName(rec evidence.Record, index int) string {
	if rec.Name == "" {
		return fmt.Sprintf("item_%03d", index+1)
	}
	return fmt.Sprintf("%03d_%s", index+1, rec.Name)
}

// TruncateWallet shortens an address for response headers and display.
func TruncateWallet(wallet string) string {
	if len(wallet) <= 8 {
		return wallet
	}
	return wallet[:8] + "..."
}
