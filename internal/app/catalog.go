package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultCatalogURL = "https://api.vndb.org/kana"

	// Tailles de chunk imposées par la limite implicite de l'API.
	PrimaryChunkSize = 50
	ReleaseChunkSize = 10

	releaseResultsPerChunk = 100

	// Le préfixe versionné invalide tout le cache quand le format change.
	searchCacheNamespace = "vndb:v2:search:"
	vnCacheNamespace     = "vndb:v2:vn:"

	catalogFields = "title, released, languages, platforms, image.url, image.dims, image.sexual, image.violence, " +
		"description, rating, votecount, length_minutes, tags.name, tags.category, developers.name, developers.original, " +
		"screenshots.url, screenshots.thumbnail, screenshots.sexual, screenshots.violence, extlinks.url, extlinks.label, extlinks.name"
	releaseFields = "minage, vns.id"
)

// ProgressFunc reçoit (traités, total) après chaque chunk.
type ProgressFunc func(current, total int)

type CatalogService struct {
	baseURL string
	client  *http.Client
	cache   ports.ResponseCache
	logger  zerolog.Logger

	primary Throttle
	release Throttle
}

// NewCatalogService construit le client catalogue. cache peut être nil.
func NewCatalogService(cache ports.ResponseCache, logger zerolog.Logger) *CatalogService {
	return &CatalogService{
		baseURL: DefaultCatalogURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache:   cache,
		logger:  logger.With().Str("component", "catalog").Logger(),
		primary: NewFixedDelay(time.Second),
		release: NewFixedDelay(time.Second),
	}
}

func (s *CatalogService) WithBaseURL(baseURL string) *CatalogService {
	if v := strings.TrimRight(strings.TrimSpace(baseURL), "/"); v != "" {
		s.baseURL = v
	}
	return s
}

func (s *CatalogService) WithTimeout(timeout time.Duration) *CatalogService {
	if timeout > 0 {
		s.client.Timeout = timeout
	}
	return s
}

// WithThrottles remplace les throttles (primaire, releases). Un nil garde l'existant.
func (s *CatalogService) WithThrottles(primary, release Throttle) *CatalogService {
	if primary != nil {
		s.primary = primary
	}
	if release != nil {
		s.release = release
	}
	return s
}

type catalogQuery struct {
	Filters any    `json:"filters"`
	Fields  string `json:"fields"`
	Sort    string `json:"sort,omitempty"`
	Results int    `json:"results,omitempty"`
}

type catalogResponse[T any] struct {
	Results []T  `json:"results"`
	More    bool `json:"more"`
	Count   int  `json:"count,omitempty"`
}

// Search renvoie les titres dans l'ordre de pertinence du catalogue.
func (s *CatalogService) Search(ctx context.Context, query string) ([]domain.CatalogRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.CatalogRecord{}, nil
	}

	key := searchCacheNamespace + query
	var cached []domain.CatalogRecord
	if s.cached(ctx, key, &cached) {
		return cached, nil
	}

	var resp catalogResponse[domain.CatalogRecord]
	req := catalogQuery{
		Filters: []any{"search", "=", query},
		Fields:  catalogFields,
		Sort:    "searchrank",
	}
	if err := s.post(ctx, "/vn", req, &resp); err != nil {
		return nil, err
	}

	records := nonNilRecords(resp.Results)
	if err := s.enrichReleases(ctx, records); err != nil {
		return nil, err
	}
	s.store(ctx, key, records)
	return records, nil
}

// GetByID renvoie nil (sans erreur) si le catalogue ne connaît pas l'id.
func (s *CatalogService) GetByID(ctx context.Context, id string) (*domain.CatalogRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrMissingKey
	}

	key := vnCacheNamespace + id
	var cached domain.CatalogRecord
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	var resp catalogResponse[domain.CatalogRecord]
	req := catalogQuery{
		Filters: idFilter([]string{id}),
		Fields:  catalogFields,
	}
	if err := s.post(ctx, "/vn", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	records := resp.Results[:1]
	if err := s.enrichReleases(ctx, records); err != nil {
		return nil, err
	}
	rec := records[0]
	s.store(ctx, key, rec)
	return &rec, nil
}

// GetByIDs récupère les titres par chunks de PrimaryChunkSize, strictement en séquence.
// Un statut non-2xx interrompt tout l'appel : jamais de résultat partiel.
// Le contexte est vérifié entre deux chunks.
func (s *CatalogService) GetByIDs(ctx context.Context, ids []string, onProgress ProgressFunc) ([]domain.CatalogRecord, error) {
	total := len(ids)
	out := make([]domain.CatalogRecord, 0, total)

	done := 0
	for i, chunk := range chunkStrings(ids, PrimaryChunkSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.primary.Wait(ctx, i); err != nil {
			return nil, err
		}

		var resp catalogResponse[domain.CatalogRecord]
		req := catalogQuery{
			Filters: idFilter(chunk),
			Fields:  catalogFields,
			Results: len(chunk),
		}
		if err := s.post(ctx, "/vn", req, &resp); err != nil {
			return nil, err
		}

		records := nonNilRecords(resp.Results)
		if err := s.enrichReleases(ctx, records); err != nil {
			return nil, err
		}
		out = append(out, records...)

		done += len(chunk)
		if onProgress != nil {
			onProgress(done, total)
		}
	}
	return out, nil
}

// enrichReleases rattache les releases à chaque titre. Best-effort : un chunk en échec
// est journalisé puis ignoré. Seule l'annulation du contexte remonte.
func (s *CatalogService) enrichReleases(ctx context.Context, records []domain.CatalogRecord) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}

	all := make([]domain.ReleaseRecord, 0)
	for i, chunk := range chunkStrings(ids, ReleaseChunkSize) {
		if err := s.release.Wait(ctx, i); err != nil {
			return err
		}

		var resp catalogResponse[domain.ReleaseRecord]
		req := catalogQuery{
			Filters: releaseFilter(chunk),
			Fields:  releaseFields,
			Results: releaseResultsPerChunk,
		}
		if err := s.post(ctx, "/release", req, &resp); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn().Err(err).Strs("ids", chunk).Msg("release enrichment failed")
			continue
		}
		all = append(all, resp.Results...)
	}

	for i := range records {
		matched := make([]domain.ReleaseRecord, 0)
		for _, rel := range all {
			if rel.References(records[i].ID) {
				matched = append(matched, rel)
			}
		}
		records[i].Releases = matched
	}
	return nil
}

func (s *CatalogService) post(ctx context.Context, endpoint string, req catalogQuery, out any) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "vnshelf")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &RemoteError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &RemoteError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Endpoint: endpoint, Err: fmt.Errorf("decode %s response: %w", endpoint, err)}
	}
	return nil
}

func (s *CatalogService) cached(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	b, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("cache entry unreadable")
		return false
	}
	return true
}

func (s *CatalogService) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, b)
}

// idFilter : prédicat simple pour un id, disjonction sinon.
func idFilter(ids []string) any {
	if len(ids) == 1 {
		return []any{"id", "=", ids[0]}
	}
	out := []any{"or"}
	for _, id := range ids {
		out = append(out, []any{"id", "=", id})
	}
	return out
}

func releaseFilter(ids []string) any {
	if len(ids) == 1 {
		return []any{"vn", "=", []any{"id", "=", ids[0]}}
	}
	out := []any{"or"}
	for _, id := range ids {
		out = append(out, []any{"vn", "=", []any{"id", "=", id}})
	}
	return out
}

func chunkStrings(items []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	out := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func nonNilRecords(in []domain.CatalogRecord) []domain.CatalogRecord {
	if in == nil {
		return []domain.CatalogRecord{}
	}
	return in
}

// IsRemoteStatus indique si err est une RemoteError portant ce statut HTTP.
func IsRemoteStatus(err error, status int) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == status
}
