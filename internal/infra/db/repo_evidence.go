package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
)

var errDBUnavailable = errors.New("database unavailable")

type EvidenceRepository struct {
	db *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Create persists the initial pending record and returns its id. This is the
// one mandatory write of the ingestion pipeline.
func (r *EvidenceRepository) Create(ctx context.Context, rec evidence.Record) (string, error) {
	if r.db == nil {
		return "", errDBUnavailable
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = evidence.StatusPending
	}
	model := toEvidenceModel(rec)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

func (r *EvidenceRepository) Get(ctx context.Context, id string) (evidence.Record, error) {
	if r.db == nil {
		return evidence.Record{}, errDBUnavailable
	}
	var model EvidenceModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return evidence.Record{}, evidence.ErrNotFound
	}
	if err != nil {
		return evidence.Record{}, err
	}
	return toEvidenceRecord(model), nil
}

func (r *EvidenceRepository) ListByIDs(ctx context.Context, ids []string) ([]evidence.Record, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []EvidenceModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]evidence.Record, 0, len(models))
	for _, m := range models {
		out = append(out, toEvidenceRecord(m))
	}
	return out, nil
}

func (r *EvidenceRepository) List(ctx context.Context, filter evidence.ListFilter) ([]evidence.Record, int64, error) {
	if r.db == nil {
		return nil, 0, errDBUnavailable
	}
	q := r.db.WithContext(ctx).Model(&EvidenceModel{})
	if filter.CaseID != "" {
		q = q.Where("case_id = ?", filter.CaseID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.SubmittedBy != "" {
		q = q.Where("submitted_by = ?", filter.SubmittedBy)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var models []EvidenceModel
	err := q.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&models).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]evidence.Record, 0, len(models))
	for _, m := range models {
		out = append(out, toEvidenceRecord(m))
	}
	return out, total, nil
}

func (r *EvidenceRepository) ListByCase(ctx context.Context, caseID string) ([]evidence.Record, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []EvidenceModel
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]evidence.Record, 0, len(models))
	for _, m := range models {
		out = append(out, toEvidenceRecord(m))
	}
	return out, nil
}

// AttachBackendRefs fills in the blob and/or ledger references obtained after
// the record was created. Refs are write-once: a ref already present on the
// row is kept, never overwritten, and the status is recomputed from what the
// row actually carries afterwards.
func (r *EvidenceRepository) AttachBackendRefs(ctx context.Context, id string, blobRef string, receipt *evidence.LedgerReceipt) (evidence.Record, error) {
	if r.db == nil {
		return evidence.Record{}, errDBUnavailable
	}
	var updated EvidenceModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model EvidenceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return evidence.ErrNotFound
		}
		if err != nil {
			return err
		}
		if blobRef != "" && model.BlobRef == "" {
			model.BlobRef = blobRef
		}
		if receipt != nil && model.LedgerTxID == "" {
			model.LedgerTxID = receipt.TxID
			model.LedgerBlockNumber = receipt.BlockNumber
			model.LedgerCost = receipt.Cost
		}
		model.Status = string(toEvidenceRecord(model).ResolveStatus())
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		updated = model
		return nil
	})
	if err != nil {
		return evidence.Record{}, err
	}
	return toEvidenceRecord(updated), nil
}

// MissingLedgerRef returns up to limit records that never got anchored,
// oldest first, for the maintenance re-anchor pass.
func (r *EvidenceRepository) MissingLedgerRef(ctx context.Context, limit int) ([]evidence.Record, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []EvidenceModel
	err := r.db.WithContext(ctx).
		Where("ledger_tx_id = '' OR ledger_tx_id IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]evidence.Record, 0, len(models))
	for _, m := range models {
		out = append(out, toEvidenceRecord(m))
	}
	return out, nil
}

func (r *EvidenceRepository) CountByStatus(ctx context.Context) (map[evidence.Status]int64, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&EvidenceModel{}).
		Select("status, count(*) as n").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[evidence.Status]int64, len(rows))
	for _, rw := range rows {
		out[evidence.Status(rw.Status)] = rw.N
	}
	return out, nil
}

func toEvidenceModel(rec evidence.Record) EvidenceModel {
	return EvidenceModel{
		ID:                rec.ID,
		CaseID:            rec.CaseID,
		Name:              rec.Name,
		Type:              rec.Type,
		Description:       rec.Description,
		Location:          rec.Location,
		ContentHash:       rec.ContentHash,
		MimeType:          rec.MimeType,
		SizeBytes:         rec.SizeBytes,
		SubmittedBy:       rec.SubmittedBy,
		BlobRef:           rec.BlobRef,
		LedgerTxID:        rec.LedgerTxID,
		LedgerBlockNumber: rec.LedgerBlockNumber,
		LedgerCost:        rec.LedgerCost,
		Status:            string(rec.Status),
		CreatedAt:         rec.CreatedAt,
	}
}

func toEvidenceRecord(model EvidenceModel) evidence.Record {
	return evidence.Record{
		ID:                model.ID,
		CaseID:            model.CaseID,
		Name:              model.Name,
		Type:              model.Type,
		Description:       model.Description,
		Location:          model.Location,
		ContentHash:       model.ContentHash,
		MimeType:          model.MimeType,
		SizeBytes:         model.SizeBytes,
		SubmittedBy:       model.SubmittedBy,
		BlobRef:           model.BlobRef,
		LedgerTxID:        model.LedgerTxID,
		LedgerBlockNumber: model.LedgerBlockNumber,
		LedgerCost:        model.LedgerCost,
		Status:            evidence.Status(model.Status),
		CreatedAt:         model.CreatedAt,
	}
}
