package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/vnshelf/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/vnshelf/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   int
	records []domain.CatalogRecord
	err     error
}

func (f *stubFetcher) GetByIDs(_ context.Context, ids []string, onProgress ProgressFunc) ([]domain.CatalogRecord, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if onProgress != nil {
		onProgress(len(ids), len(ids))
	}
	return f.records, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type libraryFixture struct {
	svc     *LibraryService
	store   *sqlite.LibraryRepository
	sources *sqlite.PurchaseSourcesRepository
	fetcher *stubFetcher
	clock   *testClock
	bus     *memorybus.Bus
}

func newLibraryFixture(t *testing.T) libraryFixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &testClock{now: time.UnixMilli(1_700_000_000_000)}
	store := sqlite.NewLibraryRepository(db.SQL)
	sources := sqlite.NewPurchaseSourcesRepository(db.SQL).WithClock(clock.Now)
	fetcher := &stubFetcher{}
	bus := memorybus.New()
	t.Cleanup(bus.Close)

	svc := NewLibraryService(store, sources, fetcher, bus, zerolog.Nop()).WithClock(clock.Now)
	require.True(t, svc.IsLoading())
	require.NoError(t, svc.Load(ctx))
	require.False(t, svc.IsLoading())

	return libraryFixture{svc: svc, store: store, sources: sources, fetcher: fetcher, clock: clock, bus: bus}
}

func strPtr(v string) *string { return &v }

func TestLibrary_AddPlanToPlay(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	events, cancel := f.bus.Subscribe()
	defer cancel()

	added, err := f.svc.AddItem(ctx, AddItemInput{
		Record: domain.CatalogRecord{ID: "v100", Title: "Hundred"},
		Status: domain.StatusPlanToPlay,
		Score:  0,
	})
	require.NoError(t, err)

	all, err := f.store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v100", all[0].CatalogID)
	assert.Equal(t, domain.StatusPlanToPlay, all[0].Status)
	assert.Equal(t, 0, all[0].Score)
	assert.Equal(t, all[0].AddedAt, all[0].UpdatedAt)
	assert.Equal(t, added, all[0])

	got, ok := f.svc.GetItem("v100")
	require.True(t, ok)
	assert.Equal(t, added, got)

	select {
	case evt := <-events:
		assert.Equal(t, TopicLibraryAdded, evt.Topic)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestLibrary_DuplicateAddReplaces(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v1"}, Status: domain.StatusPlaying})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v1"}, Status: domain.StatusCompleted, Score: 90})
	require.NoError(t, err)

	items := f.svc.Items()
	require.Len(t, items, 1)
	assert.Equal(t, domain.StatusCompleted, items[0].Status)
	assert.Equal(t, 90, items[0].Score)
}

func TestLibrary_AddRejectsInvalidInput(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v1"}, Status: "finished"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v1"}, Status: domain.StatusPlaying, Score: 101})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.AddItem(ctx, AddItemInput{Status: domain.StatusPlaying})
	assert.ErrorIs(t, err, ErrMissingKey)

	assert.Empty(t, f.svc.Items())
}

func TestLibrary_UpdateAndRemove(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	added, err := f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v7"}, Status: domain.StatusPlaying})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	added.Score = 75
	added.Notes = "route A done"
	updated, err := f.svc.UpdateItem(ctx, added)
	require.NoError(t, err)
	assert.Greater(t, updated.UpdatedAt, updated.AddedAt)

	stored, err := f.store.Get(ctx, "v7")
	require.NoError(t, err)
	assert.Equal(t, 75, stored.Score)
	assert.Equal(t, "route A done", stored.Notes)

	require.NoError(t, f.svc.RemoveItem(ctx, "v7"))
	_, ok := f.svc.GetItem("v7")
	assert.False(t, ok)
	_, err = f.store.Get(ctx, "v7")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestLibrary_RenameSteamCascade(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	steam, err := f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v1"}, Status: domain.StatusCompleted, PurchaseLocation: strPtr("Steam")})
	require.NoError(t, err)
	dmm, err := f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v2"}, Status: domain.StatusPlaying, PurchaseLocation: strPtr("DMM")})
	require.NoError(t, err)

	rewritten, err := f.svc.RenamePurchaseSource(ctx, "Steam", "Steam Store")
	require.NoError(t, err)
	require.Len(t, rewritten, 1)

	names := []string{}
	for _, p := range f.svc.PurchaseSources() {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "Steam Store")
	assert.NotContains(t, names, "Steam")

	got, _ := f.svc.GetItem("v1")
	assert.Equal(t, "Steam Store", got.PurchasedAt())
	assert.Greater(t, got.UpdatedAt, steam.UpdatedAt)

	stored, err := f.store.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	untouched, _ := f.svc.GetItem("v2")
	assert.Equal(t, dmm, untouched)

	_, err = f.svc.RenamePurchaseSource(ctx, "DMM", "Steam Store")
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)
	got, _ = f.svc.GetItem("v2")
	assert.Equal(t, "DMM", got.PurchasedAt())
}

func TestLibrary_DeletePurchaseSourceKeepsEntries(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddPurchaseSource(ctx, "Booth")
	require.NoError(t, err)
	_, err = f.svc.AddPurchaseSource(ctx, "booth ")
	require.NoError(t, err, "names are case sensitive")
	_, err = f.svc.AddPurchaseSource(ctx, "Booth")
	assert.ErrorIs(t, err, ports.ErrDuplicateKey)

	_, err = f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v3"}, Status: domain.StatusOnHold, PurchaseLocation: strPtr("Booth")})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePurchaseSource(ctx, "Booth"))
	got, _ := f.svc.GetItem("v3")
	assert.Equal(t, "Booth", got.PurchasedAt())
}

func TestLibrary_RefreshUpdatesSnapshots(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	for _, id := range []string{"v1", "v2"} {
		_, err := f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: id, Title: "old " + id}, Status: domain.StatusPlaying})
		require.NoError(t, err)
	}
	before, _ := f.svc.GetItem("v1")

	// v2 a disparu du catalogue : son snapshot reste tel quel.
	f.fetcher.records = []domain.CatalogRecord{{ID: "v1", Title: "new v1"}, {ID: "v999", Title: "not in library"}}
	f.clock.Advance(time.Second)

	var last [2]int
	n, err := f.svc.RefreshCatalogSnapshots(ctx, func(current, total int) { last = [2]int{current, total} })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, [2]int{2, 2}, last)

	v1, _ := f.svc.GetItem("v1")
	assert.Equal(t, "new v1", v1.Snapshot.Title)
	assert.Greater(t, v1.UpdatedAt, before.UpdatedAt)
	stored, err := f.store.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "new v1", stored.Snapshot.Title)

	v2, _ := f.svc.GetItem("v2")
	assert.Equal(t, "old v2", v2.Snapshot.Title)
	_, ok := f.svc.GetItem("v999")
	assert.False(t, ok)
}

func TestLibrary_RefreshRemoteFailureWritesNothing(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v1", Title: "old"}, Status: domain.StatusPlaying})
	require.NoError(t, err)
	before, err := f.store.GetAll(ctx)
	require.NoError(t, err)

	f.fetcher.err = &RemoteError{Endpoint: "/vn", Status: http.StatusInternalServerError, Body: "oops"}
	n, err := f.svc.RefreshCatalogSnapshots(ctx, nil)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, errors.Is(err, ports.ErrRemoteUnavailable))
	assert.True(t, IsRemoteStatus(err, 500))

	after, err := f.store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLibrary_ImportFillsKeyFromSnapshot(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	n, err := f.svc.ImportEntries(ctx, []domain.LibraryEntry{
		{Status: domain.StatusCompleted, Score: 80, AddedAt: 10, UpdatedAt: 20, Snapshot: domain.CatalogRecord{ID: "v5"}},
		{CatalogID: "v6", Status: domain.StatusDropped},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v5, ok := f.svc.GetItem("v5")
	require.True(t, ok)
	assert.Equal(t, int64(10), v5.AddedAt)
	assert.Equal(t, int64(20), v5.UpdatedAt)

	n, err = f.svc.ImportEntries(ctx, []domain.LibraryEntry{{CatalogID: "v8", Status: domain.StatusPlaying}, {Status: domain.StatusPlaying}})
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Equal(t, 1, n)
}

// failingStore échoue sur Put pour vérifier l'ordre écriture puis projection.
type failingStore struct {
	ports.LibraryStore
}

func (failingStore) Put(context.Context, domain.LibraryEntry) error {
	return &ports.StorageError{Op: "put entry", Err: errors.New("disk full")}
}

func TestLibrary_StorageFailureLeavesProjectionUntouched(t *testing.T) {
	f := newLibraryFixture(t)
	ctx := context.Background()

	svc := NewLibraryService(failingStore{LibraryStore: f.store}, f.sources, f.fetcher, nil, zerolog.Nop())
	require.NoError(t, svc.Load(ctx))

	_, err := svc.AddItem(ctx, AddItemInput{Record: domain.CatalogRecord{ID: "v1"}, Status: domain.StatusPlaying})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrStorageUnavailable)
	assert.Empty(t, svc.Items())
}
