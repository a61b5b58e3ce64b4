package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

type SettingsService struct {
	repo ports.SettingsRepository
	bus  ports.EventBus
}

func NewSettingsService(repo ports.SettingsRepository, bus ports.EventBus) *SettingsService {
	return &SettingsService{repo: repo, bus: bus}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.repo.Get(ctx)
}

func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	settings.Language = strings.ToLower(strings.TrimSpace(settings.Language))
	if settings.Language == "" {
		settings.Language = domain.DefaultSettings().Language
	}
	if !slices.Contains(domain.SupportedLanguages, settings.Language) {
		return domain.Settings{}, fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, settings.Language)
	}
	settings.BackgroundImage = strings.TrimSpace(settings.BackgroundImage)

	saved, err := s.repo.Put(ctx, settings)
	if err != nil {
		return domain.Settings{}, err
	}
	publishJSON(s.bus, TopicSettingsUpdated, saved)
	return saved, nil
}
