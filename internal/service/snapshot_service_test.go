package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/types"
)

func seededSnapshots(now time.Time) *mockSnapshotRepo {
	repo := &mockSnapshotRepo{}
	for i, days := range []int{200, 60, 20, 2} {
		repo.snapshots = append(repo.snapshots, models.Snapshot{
			ID:             []string{"s1", "s2", "s3", "s4"}[i],
			CreatedAt:      now.AddDate(0, 0, -days),
			FxUsdAud:       1.5,
			SnapshotTotals: models.SnapshotTotals{TotalAud: float64(1000 * (i + 1))},
			Holdings:       []models.Holding{{AssetKey: "bank:x", Source: types.SourceBank, ValueAud: float64(1000 * (i + 1))}},
		})
	}
	return repo
}

func TestSnapshotList(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		input     ListSnapshotsInput
		wantIDs   []string
		wantTotal int
	}{
		{"all", ListSnapshotsInput{}, []string{"s4", "s3", "s2", "s1"}, 4},
		{"one month", ListSnapshotsInput{Range: types.Range1M}, []string{"s4", "s3"}, 2},
		{"three months", ListSnapshotsInput{Range: types.Range3M}, []string{"s4", "s3", "s2"}, 3},
		{"paged", ListSnapshotsInput{Limit: 2, Offset: 1}, []string{"s3", "s2"}, 4},
		{"paged in range", ListSnapshotsInput{Range: types.Range3M, Limit: 1, Offset: 1}, []string{"s3"}, 3},
		{"offset past end", ListSnapshotsInput{Offset: 10}, nil, 4},
		{"offset past end in range", ListSnapshotsInput{Range: types.Range1M, Offset: 5}, nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSnapshotService(seededSnapshots(now))

			page, err := svc.List(testContext(t), tt.input)
			require.NoError(t, err)

			var ids []string
			for _, s := range page.Snapshots {
				ids = append(ids, s.ID)
				assert.Nil(t, s.Holdings)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.NotNil(t, page.Snapshots)
			assert.Equal(t, tt.wantTotal, page.Total)
		})
	}
}

func TestSnapshotListRangeFollowsLatestSnapshot(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockSnapshotRepo{snapshots: []models.Snapshot{
		{ID: "old", CreatedAt: now.AddDate(0, 0, -70)},
		{ID: "older-latest", CreatedAt: now.AddDate(0, 0, -60)},
	}}
	svc := NewSnapshotService(repo)

	page, err := svc.List(testContext(t), ListSnapshotsInput{Range: types.Range1M})
	require.NoError(t, err)

	require.Len(t, page.Snapshots, 2, "both snapshots lie within a month of the newest one")
	assert.Equal(t, "older-latest", page.Snapshots[0].ID)
	assert.Equal(t, "old", page.Snapshots[1].ID)
	assert.Equal(t, 2, page.Total)
}

func TestSnapshotListInvalidInput(t *testing.T) {
	svc := NewSnapshotService(&mockSnapshotRepo{})

	_, err := svc.List(testContext(t), ListSnapshotsInput{Range: "2W"})
	assertServiceCode(t, err, types.CodeInvalidInput)

	_, err = svc.List(testContext(t), ListSnapshotsInput{Limit: -1})
	assertServiceCode(t, err, types.CodeInvalidInput)
}

func TestSnapshotGet(t *testing.T) {
	svc := NewSnapshotService(seededSnapshots(time.Now().UTC()))

	snap, err := svc.Get(testContext(t), "s2")
	require.NoError(t, err)
	assert.Len(t, snap.Holdings, 1)

	_, err = svc.Get(testContext(t), "missing")
	assertServiceCode(t, err, types.CodeSnapshotNotFound)
}

func TestSnapshotDelete(t *testing.T) {
	repo := seededSnapshots(time.Now().UTC())
	history := &fakeHistory{}
	cache := &countingInvalidator{}
	svc := NewSnapshotService(repo).WithValueHistory(history).WithCache(cache)

	require.NoError(t, svc.Delete(testContext(t), "s3"))
	assert.Len(t, repo.snapshots, 3)
	assert.Equal(t, []string{"s3"}, history.deleted)
	assert.Equal(t, 1, cache.calls)

	err := svc.Delete(testContext(t), "s3")
	assertServiceCode(t, err, types.CodeSnapshotNotFound)
	assert.Equal(t, 1, cache.calls)
}

func TestSnapshotImport(t *testing.T) {
	repo := &mockSnapshotRepo{}
	history := &fakeHistory{}
	cache := &countingInvalidator{}
	svc := NewSnapshotService(repo).WithValueHistory(history).WithCache(cache)

	var input ImportSnapshotsInput
	require.NoError(t, json.Unmarshal([]byte(`{"snapshots":[
		{"date":"5/3/2024","totalAud":125000.5,"fxUsdAud":1.52},
		{"date":"2024-04-01T09:30:00Z","totalAud":"130000"},
		{"date":"2024-05-01","totalAud":0},
		{"date":"","totalAud":1000},
		{"date":"31/13/2024","totalAud":1000},
		{"date":"1/6/2024","totalAud":"abc"}
	]}`), &input))

	result, err := svc.Import(testContext(t), input)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 4, result.Skipped)
	require.Len(t, repo.snapshots, 2)

	first := repo.snapshots[0]
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, 125000.5, first.TotalAud)
	assert.Equal(t, 125000.5, first.ManualTotalAud)
	assert.Equal(t, 1.52, first.FxUsdAud)
	assert.Empty(t, first.Holdings)

	second := repo.snapshots[1]
	assert.Equal(t, time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC), second.CreatedAt)
	assert.Equal(t, 130000.0, second.TotalAud)
	assert.Equal(t, 1.5, second.FxUsdAud, "missing fx falls back to the default")

	assert.Len(t, history.appended, 2)
	assert.Equal(t, 1, cache.calls)
}

func TestSnapshotImportEmpty(t *testing.T) {
	cache := &countingInvalidator{}
	svc := NewSnapshotService(&mockSnapshotRepo{}).WithCache(cache)

	_, err := svc.Import(testContext(t), ImportSnapshotsInput{})
	assertServiceCode(t, err, types.CodeInvalidInput)
	assert.Equal(t, 0, cache.calls)
}

func TestSnapshotImportStoreFailure(t *testing.T) {
	repo := &mockSnapshotRepo{createErr: errors.New("insert failed")}
	svc := NewSnapshotService(repo)

	_, err := svc.Import(testContext(t), ImportSnapshotsInput{Snapshots: []ImportedSnapshot{
		{Date: "1/1/2024", TotalAud: json.RawMessage(`100`)},
	}})
	require.Error(t, err)
}

func TestParseImportDate(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{"1/2/2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"31/12/2023", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), false},
		{" 2024-02-01 ", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"2024-02-01T10:00:00+10:00", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"0/1/2024", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseImportDate(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseImportNumber(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{`1234.5`, 1234.5, false},
		{`"1234.50"`, 1234.5, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{``, 0, false},
		{`"12a"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseImportNumber(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// assertServiceCode checks that err is a service error carrying code
func assertServiceCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var svcErr *types.ServiceError
	require.True(t, errors.As(err, &svcErr), "expected service error, got %T: %v", err, err)
	assert.Equal(t, code, svcErr.Code)
}
