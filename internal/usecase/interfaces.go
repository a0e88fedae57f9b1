package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/watermark"
)

// RecordStore is the durable source of truth for evidence state. It is the
// only collaborator allowed to mutate a record.
type RecordStore interface {
	Create(ctx context.Context, rec evidence.Record) (string, error)
	Get(ctx context.Context, id string) (evidence.Record, error)
	ListByIDs(ctx context.Context, ids []string) ([]evidence.Record, error)
	List(ctx context.Context, filter evidence.ListFilter) ([]evidence.Record, int64, error)
	ListByCase(ctx context.Context, caseID string) ([]evidence.Record, error)
	AttachBackendRefs(ctx context.Context, id string, blobRef string, receipt *evidence.LedgerReceipt) (evidence.Record, error)
	MissingLedgerRef(ctx context.Context, limit int) ([]evidence.Record, error)
	CountByStatus(ctx context.Context) (map[evidence.Status]int64, error)
}

type BlobStore interface {
	Put(ctx context.Context, contentHash string, data []byte, mimeType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

type LedgerService interface {
	Anchor(ctx context.Context, contentHash string, metadata json.RawMessage) (evidence.LedgerReceipt, error)
	Verify(ctx context.Context, contentHash string) (evidence.AnchorProof, error)
}

type UserDirectory interface {
	Lookup(ctx context.Context, wallet string) (evidence.Account, error)
}

type ActivityLog interface {
	Append(ctx context.Context, actor, action string, details map[string]any) error
	ListDownloads(ctx context.Context, evidenceID string) ([]evidence.ActivityEntry, error)
	CountSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// Authorizer maps a role onto the capability it is asked for.
type Authorizer interface {
	Allow(ctx context.Context, role evidence.Role, capability string) (bool, error)
}

type WatermarkRenderer interface {
	Apply(ctx context.Context, data []byte, mimeType string, stamp watermark.Stamp) ([]byte, bool, error)
}
