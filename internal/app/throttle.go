package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Throttle espace les requêtes d'un appel découpé en chunks.
// Wait est appelé avant chaque chunk, chunk étant l'index (0-based) dans l'appel courant.
type Throttle interface {
	Wait(ctx context.Context, chunk int) error
}

// FixedDelay attend un délai fixe avant chaque chunk sauf le premier :
// n chunks => n-1 attentes, durée totale déterministe.
type FixedDelay struct {
	Delay time.Duration
	// Sleep est remplaçable dans les tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewFixedDelay(delay time.Duration) *FixedDelay {
	return &FixedDelay{Delay: delay, Sleep: SleepContext}
}

func (f *FixedDelay) Wait(ctx context.Context, chunk int) error {
	if chunk <= 0 || f.Delay <= 0 {
		return ctx.Err()
	}
	sleep := f.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, f.Delay)
}

// TokenBucket délègue à golang.org/x/time/rate ; l'index de chunk est ignoré.
type TokenBucket struct {
	limiter *rate.Limiter
}

func NewTokenBucket(every time.Duration, burst int) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(every), burst)}
}

func (t *TokenBucket) Wait(ctx context.Context, _ int) error {
	return t.limiter.Wait(ctx)
}

const (
	ThrottleFixed = "fixed"
	ThrottleToken = "token"
)

// NewThrottle construit le throttle désigné par kind ("fixed" par défaut).
// every est le délai entre chunks (fixed) ou l'intervalle de recharge d'un jeton (token).
func NewThrottle(kind string, every time.Duration, burst int) (Throttle, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", ThrottleFixed:
		return NewFixedDelay(every), nil
	case ThrottleToken:
		return NewTokenBucket(every, burst), nil
	default:
		return nil, fmt.Errorf("%w: unknown throttle %q", ErrInvalidInput, kind)
	}
}

// SleepContext dort d ou rend la main dès que ctx est annulé.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
