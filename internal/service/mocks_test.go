package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/portfolio-dashboard/internal/adapter"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
)

// Mock repositories for testing

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func f64(v float64) *float64 { return &v }

func str(v string) *string { return &v }

type mockSnapshotRepo struct {
	snapshots []models.Snapshot // oldest first
	nextID    int
	createErr error
}

func (m *mockSnapshotRepo) sort() {
	sort.SliceStable(m.snapshots, func(i, j int) bool {
		return m.snapshots[i].CreatedAt.Before(m.snapshots[j].CreatedAt)
	})
}

func (m *mockSnapshotRepo) Create(_ context.Context, snapshot *models.Snapshot) error {
	if m.createErr != nil {
		return m.createErr
	}
	if snapshot.ID == "" || snapshot.ID == models.LiveSnapshotID {
		m.nextID++
		snapshot.ID = fmt.Sprintf("snap-%d", m.nextID)
	}
	for i := range snapshot.Holdings {
		snapshot.Holdings[i].SnapshotID = snapshot.ID
	}
	m.snapshots = append(m.snapshots, *snapshot)
	m.sort()
	return nil
}

func (m *mockSnapshotRepo) GetByID(_ context.Context, id string) (*models.Snapshot, error) {
	for i := range m.snapshots {
		if m.snapshots[i].ID == id {
			s := m.snapshots[i]
			return &s, nil
		}
	}
	return nil, fmt.Errorf("snapshot %s: %w", id, storage.ErrNotFound)
}

func (m *mockSnapshotRepo) Latest(_ context.Context) (*models.Snapshot, error) {
	if len(m.snapshots) == 0 {
		return nil, fmt.Errorf("snapshot latest: %w", storage.ErrNotFound)
	}
	s := m.snapshots[len(m.snapshots)-1]
	return &s, nil
}

func (m *mockSnapshotRepo) Previous(_ context.Context, before time.Time) (*models.Snapshot, error) {
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].CreatedAt.Before(before) {
			s := m.snapshots[i]
			return &s, nil
		}
	}
	return nil, fmt.Errorf("snapshot previous: %w", storage.ErrNotFound)
}

func (m *mockSnapshotRepo) LatestCreatedAt(_ context.Context) (*time.Time, error) {
	if len(m.snapshots) == 0 {
		return nil, nil
	}
	t := m.snapshots[len(m.snapshots)-1].CreatedAt
	return &t, nil
}

func (m *mockSnapshotRepo) List(_ context.Context, opts storage.SnapshotListOptions) ([]models.Snapshot, error) {
	var out []models.Snapshot
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		s := m.snapshots[i]
		if opts.Since != nil && s.CreatedAt.Before(*opts.Since) {
			continue
		}
		s.Holdings = nil
		out = append(out, s)
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *mockSnapshotRepo) Count(_ context.Context) (int, error) {
	return len(m.snapshots), nil
}

func (m *mockSnapshotRepo) ListWithHoldings(_ context.Context) ([]models.Snapshot, error) {
	out := make([]models.Snapshot, len(m.snapshots))
	copy(out, m.snapshots)
	return out, nil
}

func (m *mockSnapshotRepo) Points(_ context.Context) ([]models.ValuePoint, error) {
	return models.Points(m.snapshots), nil
}

func (m *mockSnapshotRepo) Delete(_ context.Context, id string) error {
	for i := range m.snapshots {
		if m.snapshots[i].ID == id {
			m.snapshots = append(m.snapshots[:i], m.snapshots[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("snapshot %s: %w", id, storage.ErrNotFound)
}

type mockWalletRepo struct {
	wallets []models.Wallet
	nextID  int
}

func (m *mockWalletRepo) List(_ context.Context) ([]models.Wallet, error) {
	out := make([]models.Wallet, len(m.wallets))
	copy(out, m.wallets)
	return out, nil
}

func (m *mockWalletRepo) find(id string) int {
	for i := range m.wallets {
		if m.wallets[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *mockWalletRepo) GetByID(_ context.Context, id string) (*models.Wallet, error) {
	if i := m.find(id); i >= 0 {
		w := m.wallets[i]
		return &w, nil
	}
	return nil, fmt.Errorf("wallet %s: %w", id, storage.ErrNotFound)
}

func (m *mockWalletRepo) Create(_ context.Context, w *models.Wallet) error {
	for _, existing := range m.wallets {
		if existing.ChainType == w.ChainType && existing.Address == w.Address {
			return fmt.Errorf("wallet %s: %w", w.Address, storage.ErrDuplicate)
		}
	}
	m.nextID++
	w.ID = fmt.Sprintf("wallet-%d", m.nextID)
	w.CreatedAt = time.Now().UTC()
	m.wallets = append(m.wallets, *w)
	return nil
}

func (m *mockWalletRepo) Delete(_ context.Context, id string) error {
	i := m.find(id)
	if i < 0 {
		return fmt.Errorf("wallet %s: %w", id, storage.ErrNotFound)
	}
	m.wallets = append(m.wallets[:i], m.wallets[i+1:]...)
	return nil
}

func (m *mockWalletRepo) AddEVMToken(_ context.Context, item *models.EVMTokenAllowlistItem) error {
	i := m.find(item.WalletID)
	for _, t := range m.wallets[i].EVMAllowlist {
		if t.ContractAddress == item.ContractAddress {
			return fmt.Errorf("token %s: %w", item.ContractAddress, storage.ErrDuplicate)
		}
	}
	m.nextID++
	item.ID = fmt.Sprintf("token-%d", m.nextID)
	m.wallets[i].EVMAllowlist = append(m.wallets[i].EVMAllowlist, *item)
	return nil
}

func (m *mockWalletRepo) AddSOLToken(_ context.Context, item *models.SOLTokenAllowlistItem) error {
	i := m.find(item.WalletID)
	for _, t := range m.wallets[i].SOLAllowlist {
		if t.MintAddress == item.MintAddress {
			return fmt.Errorf("token %s: %w", item.MintAddress, storage.ErrDuplicate)
		}
	}
	m.nextID++
	item.ID = fmt.Sprintf("token-%d", m.nextID)
	m.wallets[i].SOLAllowlist = append(m.wallets[i].SOLAllowlist, *item)
	return nil
}

func (m *mockWalletRepo) RemoveToken(_ context.Context, walletID, tokenID string, evm bool) error {
	i := m.find(walletID)
	if i >= 0 {
		w := &m.wallets[i]
		if evm {
			for j, t := range w.EVMAllowlist {
				if t.ID == tokenID {
					w.EVMAllowlist = append(w.EVMAllowlist[:j], w.EVMAllowlist[j+1:]...)
					return nil
				}
			}
		} else {
			for j, t := range w.SOLAllowlist {
				if t.ID == tokenID {
					w.SOLAllowlist = append(w.SOLAllowlist[:j], w.SOLAllowlist[j+1:]...)
					return nil
				}
			}
		}
	}
	return fmt.Errorf("token %s: %w", tokenID, storage.ErrNotFound)
}

type mockManualRepo struct {
	assets []models.ManualAsset
	nextID int
}

func (m *mockManualRepo) List(_ context.Context) ([]models.ManualAsset, error) {
	out := make([]models.ManualAsset, len(m.assets))
	copy(out, m.assets)
	return out, nil
}

func (m *mockManualRepo) GetByID(_ context.Context, id string) (*models.ManualAsset, error) {
	for i := range m.assets {
		if m.assets[i].ID == id {
			a := m.assets[i]
			return &a, nil
		}
	}
	return nil, fmt.Errorf("manual asset %s: %w", id, storage.ErrNotFound)
}

func (m *mockManualRepo) Count(_ context.Context) (int, error) {
	return len(m.assets), nil
}

func (m *mockManualRepo) Create(_ context.Context, a *models.ManualAsset) error {
	m.nextID++
	a.ID = fmt.Sprintf("asset-%d", m.nextID)
	m.assets = append(m.assets, *a)
	return nil
}

func (m *mockManualRepo) Update(_ context.Context, a *models.ManualAsset) error {
	for i := range m.assets {
		if m.assets[i].ID == a.ID {
			m.assets[i] = *a
			return nil
		}
	}
	return fmt.Errorf("manual asset %s: %w", a.ID, storage.ErrNotFound)
}

func (m *mockManualRepo) Delete(_ context.Context, id string) error {
	for i := range m.assets {
		if m.assets[i].ID == id {
			m.assets = append(m.assets[:i], m.assets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("manual asset %s: %w", id, storage.ErrNotFound)
}

type mockSettingsRepo struct {
	records map[string]string
}

func (m *mockSettingsRepo) All(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}

func (m *mockSettingsRepo) Upsert(_ context.Context, records map[string]string) error {
	if m.records == nil {
		m.records = make(map[string]string)
	}
	for k, v := range records {
		m.records[k] = v
	}
	return nil
}

type mockJournalRepo struct {
	entries []models.JournalEntry
	nextID  int
}

func (m *mockJournalRepo) List(_ context.Context) ([]models.JournalEntry, error) {
	return m.entries, nil
}

func (m *mockJournalRepo) Count(_ context.Context) (int, error) {
	return len(m.entries), nil
}

func (m *mockJournalRepo) Create(_ context.Context, e *models.JournalEntry) error {
	m.nextID++
	e.ID = fmt.Sprintf("entry-%d", m.nextID)
	e.CreatedAt = time.Now().UTC()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *mockJournalRepo) Delete(_ context.Context, id string) error {
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("journal entry %s: %w", id, storage.ErrNotFound)
}

type mockBriefRepo struct {
	briefs []models.Brief
	nextID int
}

func (m *mockBriefRepo) Create(_ context.Context, b *models.Brief) error {
	m.nextID++
	b.ID = fmt.Sprintf("brief-%d", m.nextID)
	b.CreatedAt = time.Now().UTC()
	m.briefs = append(m.briefs, *b)
	return nil
}

func (m *mockBriefRepo) List(_ context.Context, limit int) ([]models.Brief, error) {
	var out []models.Brief
	for i := len(m.briefs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.briefs[i])
	}
	return out, nil
}

func (m *mockBriefRepo) GetByID(_ context.Context, id string) (*models.Brief, error) {
	for i := range m.briefs {
		if m.briefs[i].ID == id {
			b := m.briefs[i]
			return &b, nil
		}
	}
	return nil, fmt.Errorf("brief %s: %w", id, storage.ErrNotFound)
}

func (m *mockBriefRepo) Delete(_ context.Context, id string) error {
	for i := range m.briefs {
		if m.briefs[i].ID == id {
			m.briefs = append(m.briefs[:i], m.briefs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("brief %s: %w", id, storage.ErrNotFound)
}

// fakeFetcher serves canned balances per wallet id
type fakeFetcher struct {
	chain   types.ChainType
	results map[string]*adapter.FetchResult
	errs    map[string]error
}

func (f *fakeFetcher) ChainType() types.ChainType { return f.chain }

func (f *fakeFetcher) FetchBalances(_ context.Context, wallet models.Wallet) (*adapter.FetchResult, error) {
	if err := f.errs[wallet.ID]; err != nil {
		return nil, err
	}
	return f.results[wallet.ID], nil
}

// fakePrices returns fixed prices and records the requests
type fakePrices struct {
	mu       sync.Mutex
	prices   map[string]float64
	requests []adapter.PriceRequest
}

func (f *fakePrices) GetBatchPrices(_ context.Context, requests []adapter.PriceRequest) map[string]*float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, requests...)

	out := make(map[string]*float64, len(requests))
	for _, r := range requests {
		if p, ok := f.prices[r.Symbol]; ok {
			out[r.Symbol] = f64(p)
		} else {
			out[r.Symbol] = nil
		}
	}
	return out
}

// fakeHistory is an in-memory value history store
type fakeHistory struct {
	points   []models.ValuePoint
	appended []string
	deleted  []string
	err      error
}

func (f *fakeHistory) Append(_ context.Context, snapshots ...*models.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	for _, s := range snapshots {
		f.appended = append(f.appended, s.ID)
		f.points = append(f.points, s.Point())
	}
	return nil
}

func (f *fakeHistory) Points(_ context.Context) ([]models.ValuePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func (f *fakeHistory) Delete(_ context.Context, snapshotID string) error {
	f.deleted = append(f.deleted, snapshotID)
	return nil
}

// countingInvalidator counts cache invalidations
type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) InvalidateAll(context.Context) error {
	c.calls++
	return nil
}
