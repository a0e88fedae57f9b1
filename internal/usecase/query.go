package usecase

import (
	"context"
	"time"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
)

// QueryService serves read paths: listings, single records, download history,
// and the status snapshot used by the monitoring endpoint.
type QueryService struct {
	Records  RecordStore
	Users    UserDirectory
	Authz    Authorizer
	Activity ActivityLog

	Clock func() time.Time
}

func NewQueryService(records RecordStore, users UserDirectory, authz Authorizer, activity ActivityLog) *QueryService {
	return &QueryService{
		Records:  records,
		Users:    users,
		Authz:    authz,
		Activity: activity,
		Clock:    time.Now,
	}
}

func (s *QueryService) Get(ctx context.Context, id string) (evidence.Record, error) {
	return s.Records.Get(ctx, id)
}

func (s *QueryService) List(ctx context.Context, filter evidence.ListFilter) ([]evidence.Record, int64, error) {
	return s.Records.List(ctx, filter)
}

func (s *QueryService) ListByCase(ctx context.Context, caseID string) ([]evidence.Record, error) {
	return s.Records.ListByCase(ctx, caseID)
}

// DownloadHistory returns the audit trail for one record. Only roles holding
// the history capability may read it.
func (s *QueryService) DownloadHistory(ctx context.Context, evidenceID, requester string) ([]evidence.ActivityEntry, error) {
	account, err := s.Users.Lookup(ctx, requester)
	if err != nil {
		return nil, err
	}
	if !account.Active {
		return nil, evidence.ErrForbidden
	}
	allowed, err := s.Authz.Allow(ctx, account.Role, evidence.CapViewHistory)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, evidence.ErrForbidden
	}
	if _, err := s.Records.Get(ctx, evidenceID); err != nil {
		return nil, err
	}
	return s.Activity.ListDownloads(ctx, evidenceID)
}

// Stats is the monitoring snapshot.
type Stats struct {
	ByStatus     map[evidence.Status]int64 `json:"by_status"`
	Total        int64                     `json:"total"`
	ActivityLast int64                     `json:"activity_last_24h"`
	GeneratedAt  time.Time                 `json:"generated_at"`
}

func (s *QueryService) Snapshot(ctx context.Context) (Stats, error) {
	counts, err := s.Records.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	now := s.Clock()
	recent, err := s.Activity.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		ByStatus:     counts,
		Total:        total,
		ActivityLast: recent,
		GeneratedAt:  now.UTC(),
	}, nil
}
