package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
)

type ActivityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

// Append writes one audit row. Rows are never updated or deleted.
func (r *ActivityLogRepository) Append(ctx context.Context, actor, action string, details map[string]any) error {
	if r.db == nil {
		return errDBUnavailable
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}
	model := ActivityLogModel{
		ID:          uuid.NewString(),
		Actor:       actor,
		Action:      action,
		DetailsJSON: detailsJSON,
		Timestamp:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

// ListDownloads returns download and bulk-export entries that reference the
// given evidence id, newest first.
func (r *ActivityLogRepository) ListDownloads(ctx context.Context, evidenceID string) ([]evidence.ActivityEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []ActivityLogModel
	// Matches both single downloads ({"evidence_id": "..."}) and bulk exports
	// ({"evidence_ids": ["...", ...]}).
	err := r.db.WithContext(ctx).
		Where("action IN ?", []string{evidence.ActionDownload, evidence.ActionBulkExport}).
		Where("details_json::text LIKE ?", "%\""+evidenceID+"\"%").
		Order("timestamp DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]evidence.ActivityEntry, 0, len(models))
	for _, m := range models {
		entry := evidence.ActivityEntry{
			ID:        m.ID,
			Actor:     m.Actor,
			Action:    m.Action,
			Timestamp: m.Timestamp,
		}
		if len(m.DetailsJSON) > 0 {
			_ = json.Unmarshal(m.DetailsJSON, &entry.Details)
		}
		out = append(out, entry)
	}
	return out, nil
}

// CountSince reports how many audit rows were written after the cutoff.
func (r *ActivityLogRepository) CountSince(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&ActivityLogModel{}).
		Where("timestamp >= ?", cutoff).
		Count(&n).Error
	return n, err
}
