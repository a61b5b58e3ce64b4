package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

type PurchaseSourcesRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPurchaseSourcesRepository(db *sql.DB) *PurchaseSourcesRepository {
	return &PurchaseSourcesRepository{db: db, now: time.Now}
}

// WithClock remplace l'horloge utilisée pour estampiller la cascade (tests).
func (r *PurchaseSourcesRepository) WithClock(now func() time.Time) *PurchaseSourcesRepository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *PurchaseSourcesRepository) ListPurchaseSources(ctx context.Context) ([]domain.PurchaseSource, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM purchase_sources ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, &ports.StorageError{Op: "list purchase sources", Err: err}
	}
	defer rows.Close()

	out := make([]domain.PurchaseSource, 0)
	for rows.Next() {
		var s domain.PurchaseSource
		if err := rows.Scan(&s.Name); err != nil {
			return nil, &ports.StorageError{Op: "list purchase sources", Err: err}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &ports.StorageError{Op: "list purchase sources", Err: err}
	}
	return out, nil
}

func (r *PurchaseSourcesRepository) AddPurchaseSource(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ports.ErrMissingKey
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO purchase_sources(name) VALUES(?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicateKey
		}
		return &ports.StorageError{Op: "add purchase source", Err: err}
	}
	return nil
}

// RenamePurchaseSource renomme oldName en newName et réécrit purchase_location de toutes les
// entrées concernées, le tout dans une seule transaction : soit tout est visible, soit rien.
// updated_at des entrées réécrites augmente strictement (max(now, updated_at+1)).
func (r *PurchaseSourcesRepository) RenamePurchaseSource(ctx context.Context, oldName, newName string) ([]domain.LibraryEntry, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return nil, ports.ErrMissingKey
	}
	if oldName == newName {
		return []domain.LibraryEntry{}, nil
	}

	nowMs := r.now().UnixMilli()
	var rewritten []domain.LibraryEntry
	err := runTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_sources WHERE name = ?`, oldName); err != nil {
			return &ports.StorageError{Op: "rename purchase source", Err: err}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO purchase_sources(name) VALUES(?)`, newName); err != nil {
			if isUniqueViolation(err) {
				return ports.ErrDuplicateKey
			}
			return &ports.StorageError{Op: "rename purchase source", Err: err}
		}

		// Les ids sont lus avant l'UPDATE : après, purchase_location ne permet plus de les retrouver.
		ids, err := matchingEntryIDs(ctx, tx, oldName)
		if err != nil {
			return &ports.StorageError{Op: "rename purchase source", Err: err}
		}
		if len(ids) == 0 {
			rewritten = []domain.LibraryEntry{}
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE library_entries
			SET purchase_location = ?,
				updated_at = CASE WHEN ? > updated_at THEN ? ELSE updated_at + 1 END
			WHERE purchase_location = ?
		`, newName, nowMs, nowMs, oldName)
		if err != nil {
			return &ports.StorageError{Op: "cascade purchase source", Err: err}
		}

		rewritten = make([]domain.LibraryEntry, 0, len(ids))
		for _, id := range ids {
			entry, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM library_entries WHERE catalog_id = ?`, id))
			if err != nil {
				return &ports.StorageError{Op: "cascade purchase source", Err: err}
			}
			rewritten = append(rewritten, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rewritten, nil
}

// DeletePurchaseSource supprime uniquement la source : les entrées gardent leur libellé.
func (r *PurchaseSourcesRepository) DeletePurchaseSource(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM purchase_sources WHERE name = ?`, strings.TrimSpace(name)); err != nil {
		return &ports.StorageError{Op: "delete purchase source", Err: err}
	}
	return nil
}

func matchingEntryIDs(ctx context.Context, tx *sql.Tx, purchaseLocation string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT catalog_id FROM library_entries WHERE purchase_location = ?`, purchaseLocation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
