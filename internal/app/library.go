package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
	"github.com/rs/zerolog"
)

// CatalogFetcher est la partie du client catalogue utilisée par le refresh.
type CatalogFetcher interface {
	GetByIDs(ctx context.Context, ids []string, onProgress ProgressFunc) ([]domain.CatalogRecord, error)
}

// LibraryService maintient la projection mémoire de la bibliothèque.
//
// Toute mutation écrit d'abord dans le store puis, seulement en cas de succès,
// applique le changement en mémoire. writeMu sérialise les mutations ; mu protège
// les lectures concurrentes de la projection.
type LibraryService struct {
	store   ports.LibraryStore
	sources ports.PurchaseSourceStore
	catalog CatalogFetcher
	bus     ports.EventBus
	logger  zerolog.Logger
	now     func() time.Time

	writeMu sync.Mutex

	mu              sync.RWMutex
	entries         []domain.LibraryEntry
	purchaseSources []domain.PurchaseSource
	loading         bool
}

func NewLibraryService(store ports.LibraryStore, sources ports.PurchaseSourceStore, catalog CatalogFetcher, bus ports.EventBus, logger zerolog.Logger) *LibraryService {
	return &LibraryService{
		store:   store,
		sources: sources,
		catalog: catalog,
		bus:     bus,
		logger:  logger.With().Str("component", "library").Logger(),
		now:     time.Now,
		loading: true,
	}
}

func (s *LibraryService) WithClock(now func() time.Time) *LibraryService {
	if now != nil {
		s.now = now
	}
	return s
}

// Load charge entrées et sources depuis le store. IsLoading reste vrai jusqu'à la fin du premier Load.
func (s *LibraryService) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	entries, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	sources, err := s.sources.ListPurchaseSources(ctx)
	if err != nil {
		return fmt.Errorf("load purchase sources: %w", err)
	}

	s.mu.Lock()
	s.entries = entries
	s.purchaseSources = sources
	s.mu.Unlock()

	s.logger.Info().Int("entries", len(entries)).Int("purchase_sources", len(sources)).Msg("library loaded")
	return nil
}

func (s *LibraryService) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Items renvoie une copie de la projection.
func (s *LibraryService) Items() []domain.LibraryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

func (s *LibraryService) GetItem(catalogID string) (domain.LibraryEntry, bool) {
	catalogID = strings.TrimSpace(catalogID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(catalogID); i >= 0 {
		return s.entries[i], true
	}
	return domain.LibraryEntry{}, false
}

func (s *LibraryService) PurchaseSources() []domain.PurchaseSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.purchaseSources)
}

type AddItemInput struct {
	Record           domain.CatalogRecord
	Status           domain.Status
	Score            int
	Notes            string
	PlayTimeMinutes  *int
	Review           string
	PurchaseLocation *string
}

// AddItem crée l'entrée avec addedAt == updatedAt == now.
// Une entrée existante avec la même clé est remplacée sans erreur.
func (s *LibraryService) AddItem(ctx context.Context, in AddItemInput) (domain.LibraryEntry, error) {
	nowMs := s.now().UnixMilli()
	entry := domain.LibraryEntry{
		CatalogID:        strings.TrimSpace(in.Record.ID),
		Status:           in.Status,
		Score:            in.Score,
		Notes:            in.Notes,
		Review:           in.Review,
		PlayTimeMinutes:  in.PlayTimeMinutes,
		PurchaseLocation: normalizeLocation(in.PurchaseLocation),
		AddedAt:          nowMs,
		UpdatedAt:        nowMs,
		Snapshot:         in.Record,
	}
	if err := validateEntry(entry); err != nil {
		return domain.LibraryEntry{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Put(ctx, entry); err != nil {
		return domain.LibraryEntry{}, err
	}
	s.reflectLocked(entry)

	publishJSON(s.bus, TopicLibraryAdded, entry)
	return entry, nil
}

// UpdateItem estampille updatedAt puis remplace l'entrée (ajout si absente de la projection).
func (s *LibraryService) UpdateItem(ctx context.Context, entry domain.LibraryEntry) (domain.LibraryEntry, error) {
	entry.CatalogID = entry.Key()
	entry.PurchaseLocation = normalizeLocation(entry.PurchaseLocation)
	if err := validateEntry(entry); err != nil {
		return domain.LibraryEntry{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry.UpdatedAt = nextStamp(s.now().UnixMilli(), entry.UpdatedAt)
	if err := s.store.Put(ctx, entry); err != nil {
		return domain.LibraryEntry{}, err
	}
	s.reflectLocked(entry)

	publishJSON(s.bus, TopicLibraryUpdated, entry)
	return entry, nil
}

func (s *LibraryService) RemoveItem(ctx context.Context, catalogID string) error {
	catalogID = strings.TrimSpace(catalogID)
	if catalogID == "" {
		return ErrMissingKey
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Delete(ctx, catalogID); err != nil {
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(catalogID); i >= 0 {
		s.entries = slices.Delete(s.entries, i, i+1)
	}
	s.mu.Unlock()

	publishJSON(s.bus, TopicLibraryRemoved, map[string]string{"catalogId": catalogID})
	return nil
}

// ImportEntries upsert chaque entrée dans l'ordre. Le compte renvoyé inclut
// les entrées écrites avant une éventuelle erreur.
func (s *LibraryService) ImportEntries(ctx context.Context, entries []domain.LibraryEntry) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	nowMs := s.now().UnixMilli()
	imported := 0
	for i, entry := range entries {
		entry.CatalogID = entry.Key()
		if entry.CatalogID == "" {
			return imported, fmt.Errorf("entry %d: %w", i, ErrMissingKey)
		}
		if entry.Status == "" {
			entry.Status = domain.StatusPlanToPlay
		}
		entry.PurchaseLocation = normalizeLocation(entry.PurchaseLocation)
		if err := validateEntry(entry); err != nil {
			return imported, fmt.Errorf("entry %d (%s): %w", i, entry.CatalogID, err)
		}
		if entry.AddedAt <= 0 {
			entry.AddedAt = nowMs
		}
		if entry.UpdatedAt <= 0 {
			entry.UpdatedAt = entry.AddedAt
		}

		if err := s.store.Put(ctx, entry); err != nil {
			return imported, err
		}
		s.reflectLocked(entry)
		imported++
	}

	publishJSON(s.bus, TopicLibraryImported, map[string]int{"count": imported})
	return imported, nil
}

func (s *LibraryService) AddPurchaseSource(ctx context.Context, name string) (domain.PurchaseSource, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.PurchaseSource{}, ErrMissingKey
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.sources.AddPurchaseSource(ctx, name); err != nil {
		return domain.PurchaseSource{}, err
	}
	src := domain.PurchaseSource{Name: name}

	s.mu.Lock()
	s.purchaseSources = append(s.purchaseSources, src)
	sortSources(s.purchaseSources)
	s.mu.Unlock()

	publishJSON(s.bus, TopicPurchaseSourceAdded, src)
	return src, nil
}

// RenamePurchaseSource applique en mémoire exactement la cascade faite par le store.
func (s *LibraryService) RenamePurchaseSource(ctx context.Context, oldName, newName string) ([]domain.LibraryEntry, error) {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if oldName == "" || newName == "" {
		return nil, ErrMissingKey
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rewritten, err := s.sources.RenamePurchaseSource(ctx, oldName, newName)
	if err != nil {
		return nil, err
	}
	if oldName == newName {
		return rewritten, nil
	}

	s.mu.Lock()
	s.purchaseSources = slices.DeleteFunc(s.purchaseSources, func(p domain.PurchaseSource) bool { return p.Name == oldName })
	s.purchaseSources = append(s.purchaseSources, domain.PurchaseSource{Name: newName})
	sortSources(s.purchaseSources)
	s.mu.Unlock()

	for _, e := range rewritten {
		s.reflectLocked(e)
	}

	publishJSON(s.bus, TopicPurchaseSourceRenamed, map[string]any{"from": oldName, "to": newName, "entries": len(rewritten)})
	return rewritten, nil
}

// DeletePurchaseSource ne touche pas aux entrées qui la référencent.
func (s *LibraryService) DeletePurchaseSource(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrMissingKey
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.sources.DeletePurchaseSource(ctx, name); err != nil {
		return err
	}

	s.mu.Lock()
	s.purchaseSources = slices.DeleteFunc(s.purchaseSources, func(p domain.PurchaseSource) bool { return p.Name == name })
	s.mu.Unlock()

	publishJSON(s.bus, TopicPurchaseSourceDeleted, domain.PurchaseSource{Name: name})
	return nil
}

// RefreshCatalogSnapshots re-télécharge le snapshot catalogue de chaque entrée.
// Rien n'est écrit si le catalogue échoue. Les titres disparus du catalogue
// gardent leur ancien snapshot. Renvoie le nombre d'entrées mises à jour.
func (s *LibraryService) RefreshCatalogSnapshots(ctx context.Context, onProgress ProgressFunc) (int, error) {
	items := s.Items()
	ids := make([]string, 0, len(items))
	for _, e := range items {
		ids = append(ids, e.CatalogID)
	}
	if len(ids) == 0 {
		if onProgress != nil {
			onProgress(0, 0)
		}
		return 0, nil
	}

	records, err := s.catalog.GetByIDs(ctx, ids, onProgress)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, rec := range records {
		ok, err := s.applySnapshot(ctx, rec)
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}

	s.logger.Info().Int("requested", len(ids)).Int("received", len(records)).Int("updated", updated).Msg("catalog snapshots refreshed")
	publishJSON(s.bus, TopicLibraryRefreshed, map[string]int{"updated": updated})
	return updated, nil
}

// applySnapshot relit l'entrée courante sous writeMu : jamais de copie périmée réécrite.
func (s *LibraryService) applySnapshot(ctx context.Context, rec domain.CatalogRecord) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, ok := s.GetItem(rec.ID)
	if !ok {
		return false, nil
	}
	current.Snapshot = rec
	current.UpdatedAt = nextStamp(s.now().UnixMilli(), current.UpdatedAt)
	if err := s.store.Put(ctx, current); err != nil {
		return false, err
	}
	s.reflectLocked(current)
	return true, nil
}

func (s *LibraryService) reflectLocked(entry domain.LibraryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(entry.CatalogID); i >= 0 {
		s.entries[i] = entry
		return
	}
	s.entries = append(s.entries, entry)
}

func (s *LibraryService) indexLocked(catalogID string) int {
	for i := range s.entries {
		if s.entries[i].CatalogID == catalogID {
			return i
		}
	}
	return -1
}

func validateEntry(e domain.LibraryEntry) error {
	if strings.TrimSpace(e.CatalogID) == "" {
		return ErrMissingKey
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, e.Status)
	}
	if e.Score < domain.MinScore || e.Score > domain.MaxScore {
		return fmt.Errorf("%w: score %d out of range", ErrInvalidInput, e.Score)
	}
	if e.PlayTimeMinutes != nil && *e.PlayTimeMinutes < 0 {
		return fmt.Errorf("%w: negative play time", ErrInvalidInput)
	}
	return nil
}

func normalizeLocation(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// nextStamp garantit un updatedAt strictement croissant même si l'horloge recule.
func nextStamp(nowMs, previous int64) int64 {
	if nowMs > previous {
		return nowMs
	}
	return previous + 1
}

func sortSources(sources []domain.PurchaseSource) {
	slices.SortFunc(sources, func(a, b domain.PurchaseSource) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
}
