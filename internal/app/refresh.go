package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// SnapshotRefresher est implémenté par LibraryService.
type SnapshotRefresher interface {
	RefreshCatalogSnapshots(ctx context.Context, onProgress ProgressFunc) (int, error)
}

// RefreshService lance les refresh en arrière-plan, un seul à la fois.
// Les jobs terminés restent consultables jusqu'à l'arrêt du process.
type RefreshService struct {
	parent    context.Context
	logger    zerolog.Logger
	refresher SnapshotRefresher
	bus       ports.EventBus
	now       func() time.Time

	mu      sync.Mutex
	jobs    map[string]domain.RefreshJob
	running string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRefreshService(parent context.Context, logger zerolog.Logger, refresher SnapshotRefresher, bus ports.EventBus) *RefreshService {
	if parent == nil {
		parent = context.Background()
	}
	return &RefreshService{
		parent:    parent,
		logger:    logger.With().Str("component", "refresh").Logger(),
		refresher: refresher,
		bus:       bus,
		now:       time.Now,
		jobs:      map[string]domain.RefreshJob{},
	}
}

// Start renvoie ErrConflict si un refresh tourne déjà.
func (s *RefreshService) Start() (domain.RefreshJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running != "" {
		return domain.RefreshJob{}, ErrConflict
	}
	if err := s.parent.Err(); err != nil {
		return domain.RefreshJob{}, err
	}

	job := domain.RefreshJob{
		ID:        xid.New().String(),
		State:     domain.RefreshRunning,
		StartedAt: s.now().UTC(),
	}
	ctx, cancel := context.WithCancel(s.parent)
	s.jobs[job.ID] = job
	s.running = job.ID
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.run(ctx, job.ID)
	}()

	return job, nil
}

func (s *RefreshService) run(ctx context.Context, id string) {
	logger := s.logger.With().Str("job_id", id).Logger()
	logger.Info().Msg("refresh started")

	updated, err := s.refresher.RefreshCatalogSnapshots(ctx, func(current, total int) {
		job := s.update(id, func(j *domain.RefreshJob) {
			j.Current = current
			j.Total = total
		})
		publishJSON(s.bus, TopicRefreshProgress, job)
	})

	// État terminal et libération du slot sous le même verrou : un Start qui voit
	// le job terminé ne peut pas recevoir ErrConflict.
	s.mu.Lock()
	job := s.jobs[id]
	job.Updated = updated
	job.FinishedAt = s.now().UTC()
	switch {
	case err == nil:
		job.State = domain.RefreshCompleted
	case errors.Is(err, context.Canceled):
		job.State = domain.RefreshCanceled
		job.Error = err.Error()
	default:
		job.State = domain.RefreshFailed
		job.Error = err.Error()
	}
	s.jobs[id] = job
	if s.running == id {
		s.running = ""
		s.cancel = nil
	}
	s.mu.Unlock()

	switch job.State {
	case domain.RefreshCompleted:
		logger.Info().Int("updated", updated).Msg("refresh completed")
		publishJSON(s.bus, TopicRefreshCompleted, job)
	default:
		logger.Warn().Err(err).Str("state", string(job.State)).Msg("refresh failed")
		publishJSON(s.bus, TopicRefreshFailed, job)
	}
}

func (s *RefreshService) update(id string, fn func(j *domain.RefreshJob)) domain.RefreshJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := s.jobs[id]
	fn(&job)
	s.jobs[id] = job
	return job
}

func (s *RefreshService) Get(id string) (domain.RefreshJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.RefreshJob{}, ErrNotFound
	}
	return job, nil
}

// Cancel demande l'arrêt du job ; l'annulation prend effet entre deux chunks.
func (s *RefreshService) Cancel(id string) (domain.RefreshJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.RefreshJob{}, ErrNotFound
	}
	if s.running == id && s.cancel != nil {
		s.cancel()
	}
	return job, nil
}

// Close annule le job en cours et attend sa fin.
func (s *RefreshService) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
