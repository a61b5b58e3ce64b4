package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func sampleEntry(id string, status domain.Status) domain.LibraryEntry {
	return domain.LibraryEntry{
		CatalogID:       id,
		Status:          status,
		Score:           85,
		Notes:           "route order: true end last",
		Review:          "great",
		PlayTimeMinutes: ptr(1200),
		AddedAt:         1_700_000_000_000,
		UpdatedAt:       1_700_000_000_500,
		Snapshot: domain.CatalogRecord{
			ID:            id,
			Title:         "Title " + id,
			Released:      "2004-01-30",
			Image:         &domain.CatalogImage{URL: "https://t.vndb.org/cv/1.jpg", Sexual: 0.2},
			Rating:        88.4,
			VoteCount:     1234,
			LengthMinutes: ptr(3000),
			Tags:          []domain.CatalogTag{{Name: "Mystery"}},
			Developers:    []domain.CatalogDeveloper{{Name: "Studio"}},
			Releases:      []domain.ReleaseRecord{{ID: "r1", MinAge: ptr(18), VNs: []domain.ReleaseVN{{ID: id}}}},
		},
	}
}

func TestLibraryRepository_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewLibraryRepository(openTestDB(t).SQL)

	want := sampleEntry("v17", domain.StatusCompleted)
	want.PurchaseLocation = ptr("Steam")
	if err := repo.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(ctx, "v17")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round-trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestLibraryRepository_RoundTripKeepsEmptyLists(t *testing.T) {
	ctx := context.Background()
	repo := NewLibraryRepository(openTestDB(t).SQL)

	// Forme renvoyée par le catalogue après enrichissement : listes vides, jamais nil.
	want := sampleEntry("v90", domain.StatusPlanToPlay)
	want.Snapshot.Releases = []domain.ReleaseRecord{}
	want.Snapshot.Languages = []string{}
	want.Snapshot.Platforms = []string{}
	want.Snapshot.Screenshots = []domain.CatalogScreenshot{}
	want.Snapshot.ExtLinks = []domain.CatalogLink{}
	if err := repo.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(ctx, "v90")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Snapshot.Releases == nil || got.Snapshot.Languages == nil {
		t.Fatalf("empty lists read back as nil: %+v", got.Snapshot)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round-trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestLibraryRepository_PutReplacesAndKeepsStatusIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewLibraryRepository(openTestDB(t).SQL)

	if err := repo.Put(ctx, sampleEntry("v1", domain.StatusPlanToPlay)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Put(ctx, sampleEntry("v2", domain.StatusPlanToPlay)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	moved := sampleEntry("v1", domain.StatusPlaying)
	if err := repo.Put(ctx, moved); err != nil {
		t.Fatalf("Put(replace): %v", err)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries after replace, got %d", len(all))
	}

	planned, err := repo.ListByStatus(ctx, domain.StatusPlanToPlay)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(planned) != 1 || planned[0].CatalogID != "v2" {
		t.Fatalf("expected only v2 planned, got %+v", planned)
	}
	playing, err := repo.ListByStatus(ctx, domain.StatusPlaying)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(playing) != 1 || playing[0].CatalogID != "v1" {
		t.Fatalf("expected v1 playing, got %+v", playing)
	}
}

func TestLibraryRepository_PutRequiresKey(t *testing.T) {
	repo := NewLibraryRepository(openTestDB(t).SQL)
	err := repo.Put(context.Background(), domain.LibraryEntry{Status: domain.StatusPlaying})
	if !errors.Is(err, ports.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestLibraryRepository_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewLibraryRepository(openTestDB(t).SQL)

	if _, err := repo.Get(ctx, "v404"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "v404"); err != nil {
		t.Fatalf("Delete(absent) should be a no-op, got %v", err)
	}

	if err := repo.Put(ctx, sampleEntry("v5", domain.StatusDropped)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Delete(ctx, "v5"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "v5"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestLibraryRepository_ClosedDBIsStorageUnavailable(t *testing.T) {
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	repo := NewLibraryRepository(db.SQL)
	_ = db.Close()

	err = repo.Put(context.Background(), sampleEntry("v1", domain.StatusPlaying))
	if !errors.Is(err, ports.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	var se *ports.StorageError
	if !errors.As(err, &se) || se.Err == nil {
		t.Fatalf("expected StorageError carrying the driver error, got %#v", err)
	}
}

func TestDB_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate(again): %v", err)
	}
	v, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 3 {
		t.Fatalf("schema version: want 3, got %d", v)
	}
}
