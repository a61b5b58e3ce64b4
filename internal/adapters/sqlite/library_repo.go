package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

const entryColumns = `catalog_id, status, score, notes, review, play_time_minutes, purchase_location, added_at, updated_at, snapshot_json`

type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// Put insère ou remplace l'entrée. Aucune validation à part la présence de la clé :
// updatedAt reste à la charge de l'appelant.
func (r *LibraryRepository) Put(ctx context.Context, entry domain.LibraryEntry) error {
	id := strings.TrimSpace(entry.CatalogID)
	if id == "" {
		return ports.ErrMissingKey
	}
	entry.CatalogID = id

	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO library_entries(`+entryColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(catalog_id) DO UPDATE SET
			status = excluded.status,
			score = excluded.score,
			notes = excluded.notes,
			review = excluded.review,
			play_time_minutes = excluded.play_time_minutes,
			purchase_location = excluded.purchase_location,
			added_at = excluded.added_at,
			updated_at = excluded.updated_at,
			snapshot_json = excluded.snapshot_json
	`,
		entry.CatalogID, string(entry.Status), entry.Score, entry.Notes, entry.Review,
		nullInt(entry.PlayTimeMinutes), nullString(entry.PurchaseLocation),
		entry.AddedAt, entry.UpdatedAt, string(snapshot),
	)
	if err != nil {
		return &ports.StorageError{Op: "put entry", Err: err}
	}
	return nil
}

func (r *LibraryRepository) Get(ctx context.Context, catalogID string) (domain.LibraryEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM library_entries WHERE catalog_id = ?`, catalogID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LibraryEntry{}, ports.ErrNotFound
		}
		return domain.LibraryEntry{}, &ports.StorageError{Op: "get entry", Err: err}
	}
	return entry, nil
}

func (r *LibraryRepository) GetAll(ctx context.Context) ([]domain.LibraryEntry, error) {
	out, err := queryEntries(ctx, r.db, `SELECT `+entryColumns+` FROM library_entries`)
	if err != nil {
		return nil, &ports.StorageError{Op: "list entries", Err: err}
	}
	return out, nil
}

// ListByStatus passe par idx_library_entries_status.
func (r *LibraryRepository) ListByStatus(ctx context.Context, status domain.Status) ([]domain.LibraryEntry, error) {
	out, err := queryEntries(ctx, r.db, `SELECT `+entryColumns+` FROM library_entries WHERE status = ?`, string(status))
	if err != nil {
		return nil, &ports.StorageError{Op: "list entries by status", Err: err}
	}
	return out, nil
}

func (r *LibraryRepository) Delete(ctx context.Context, catalogID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM library_entries WHERE catalog_id = ?`, catalogID); err != nil {
		return &ports.StorageError{Op: "delete entry", Err: err}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryEntries(ctx context.Context, q queryer, query string, args ...any) ([]domain.LibraryEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.LibraryEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func scanEntry(row rowScanner) (domain.LibraryEntry, error) {
	var (
		e        domain.LibraryEntry
		status   string
		playTime sql.NullInt64
		purchase sql.NullString
		snapshot string
	)
	err := row.Scan(
		&e.CatalogID, &status, &e.Score, &e.Notes, &e.Review,
		&playTime, &purchase, &e.AddedAt, &e.UpdatedAt, &snapshot,
	)
	if err != nil {
		return domain.LibraryEntry{}, err
	}
	e.Status = domain.Status(status)
	if playTime.Valid {
		v := int(playTime.Int64)
		e.PlayTimeMinutes = &v
	}
	if purchase.Valid {
		v := purchase.String
		e.PurchaseLocation = &v
	}
	if snapshot != "" {
		// Un snapshot illisible ne doit pas rendre toute la bibliothèque inaccessible.
		_ = json.Unmarshal([]byte(snapshot), &e.Snapshot)
	}
	return e, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
