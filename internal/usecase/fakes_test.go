package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/watermark"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fakeRecords struct {
	mu        sync.Mutex
	records   map[string]evidence.Record
	nextID    int
	createErr error
	attachErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[string]evidence.Record{}}
}

func (f *fakeRecords) Create(_ context.Context, rec evidence.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	rec.ID = fmt.Sprintf("ev-%d", f.nextID)
	if rec.Status == "" {
		rec.Status = evidence.StatusPending
	}
	rec.CreatedAt = time.Now().UTC()
	f.records[rec.ID] = rec
	return rec.ID, nil
}

func (f *fakeRecords) Get(_ context.Context, id string) (evidence.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return evidence.Record{}, evidence.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRecords) ListByIDs(_ context.Context, ids []string) ([]evidence.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []evidence.Record
	for _, id := range ids {
		if rec, ok := f.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecords) List(_ context.Context, filter evidence.ListFilter) ([]evidence.Record, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []evidence.Record
	for _, rec := range f.records {
		if filter.CaseID != "" && rec.CaseID != filter.CaseID {
			continue
		}
		out = append(out, rec)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRecords) ListByCase(_ context.Context, caseID string) ([]evidence.Record, error) {
	recs, _, err := f.List(context.Background(), evidence.ListFilter{CaseID: caseID})
	return recs, err
}

func (f *fakeRecords) AttachBackendRefs(_ context.Context, id string, blobRef string, receipt *evidence.LedgerReceipt) (evidence.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return evidence.Record{}, f.attachErr
	}
	rec, ok := f.records[id]
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
	f.records[id] = rec
	return rec, nil
}

func (f *fakeRecords) MissingLedgerRef(_ context.Context, limit int) ([]evidence.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []evidence.Record
	for _, rec := range f.records {
		if rec.LedgerTxID == "" {
			out = append(out, rec)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRecords) CountByStatus(_ context.Context) (map[evidence.Status]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[evidence.Status]int64{}
	for _, rec := range f.records {
		counts[rec.Status]++
	}
	return counts, nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	puts    int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Put(_ context.Context, contentHash string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return "", f.putErr
	}
	ref := "blob/" + contentHash
	f.objects[ref] = data
	return ref, nil
}

func (f *fakeBlobs) Get(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[ref]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return data, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	anchorErr error
	anchors   int
	receipt   evidence.LedgerReceipt
	proof     evidence.AnchorProof
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{receipt: evidence.LedgerReceipt{TxID: "0xfeed", BlockNumber: 7, Cost: "21000"}}
}

func (f *fakeLedger) Anchor(_ context.Context, _ string, _ json.RawMessage) (evidence.LedgerReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anchors++
	if f.anchorErr != nil {
		return evidence.LedgerReceipt{}, f.anchorErr
	}
	return f.receipt, nil
}

func (f *fakeLedger) Verify(_ context.Context, _ string) (evidence.AnchorProof, error) {
	return f.proof, nil
}

type fakeUsers struct {
	accounts map[string]evidence.Account
}

func newFakeUsers(accounts ...evidence.Account) *fakeUsers {
	f := &fakeUsers{accounts: map[string]evidence.Account{}}
	for _, a := range accounts {
		f.accounts[strings.ToLower(a.Wallet)] = a
	}
	return f
}

func (f *fakeUsers) Lookup(_ context.Context, wallet string) (evidence.Account, error) {
	account, ok := f.accounts[strings.ToLower(wallet)]
	if !ok {
		return evidence.Account{}, evidence.ErrNotFound
	}
	return account, nil
}

// fakeAuthz mirrors the production capability table.
type fakeAuthz struct{}

func (fakeAuthz) Allow(_ context.Context, role evidence.Role, capability string) (bool, error) {
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

type loggedAction struct {
	Actor   string
	Action  string
	Details map[string]any
}

type fakeActivity struct {
	mu        sync.Mutex
	entries   []loggedAction
	appendErr error
}

func (f *fakeActivity) Append(_ context.Context, actor, action string, details map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, loggedAction{Actor: actor, Action: action, Details: details})
	return nil
}

func (f *fakeActivity) ListDownloads(_ context.Context, evidenceID string) ([]evidence.ActivityEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []evidence.ActivityEntry
	for _, e := range f.entries {
		if e.Action != evidence.ActionDownload && e.Action != evidence.ActionBulkExport {
			continue
		}
		if id, _ := e.Details["evidence_id"].(string); id == evidenceID {
			out = append(out, evidence.ActivityEntry{Actor: e.Actor, Action: e.Action, Details: e.Details})
		}
	}
	return out, nil
}

func (f *fakeActivity) CountSince(_ context.Context, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

func (f *fakeActivity) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

var _ WatermarkRenderer = watermark.Renderer(nil)
