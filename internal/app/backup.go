package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

// EntryImporter est implémenté par LibraryService.
type EntryImporter interface {
	ImportEntries(ctx context.Context, entries []domain.LibraryEntry) (int, error)
}

// BackupService exporte depuis le store durable (pas depuis la projection mémoire)
// et réimporte via le coordinateur pour garder la projection à jour.
type BackupService struct {
	store    ports.LibraryStore
	importer EntryImporter
}

func NewBackupService(store ports.LibraryStore, importer EntryImporter) *BackupService {
	return &BackupService{store: store, importer: importer}
}

// Export écrit un tableau JSON indenté. status vide => toute la bibliothèque.
func (s *BackupService) Export(ctx context.Context, w io.Writer, status domain.Status) (int, error) {
	var (
		entries []domain.LibraryEntry
		err     error
	)
	if status == "" {
		entries, err = s.store.GetAll(ctx)
	} else {
		entries, err = s.store.ListByStatus(ctx, status)
	}
	if err != nil {
		return 0, err
	}
	if entries == nil {
		entries = []domain.LibraryEntry{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return 0, fmt.Errorf("encode backup: %w", err)
	}
	return len(entries), nil
}

// Import accepte uniquement un tableau JSON ; chaque élément est upserté.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read backup: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return 0, fmt.Errorf("%w: backup must be a JSON array", ErrInvalidInput)
	}

	var entries []domain.LibraryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.importer.ImportEntries(ctx, entries)
}
