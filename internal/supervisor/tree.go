// Package supervisor runs the long-lived services of the server under a
// suture tree so a crashed channel task is restarted in isolation.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/config"
)

// Tree has two layers: broadcast (channel tasks and the position
// refresher) and api (the HTTP server).
type Tree struct {
	root      *suture.Supervisor
	broadcast *suture.Supervisor
	api       *suture.Supervisor
}

// NewTree builds the tree. Zero values in cfg fall back to suture's
// defaults.
func NewTree(logger *slog.Logger, cfg config.SupervisorConfig) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}
	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	t := &Tree{
		root:      suture.New("fleet-tracker", rootSpec),
		broadcast: suture.New("broadcast-layer", childSpec),
		api:       suture.New("api-layer", childSpec),
	}
	t.root.Add(t.broadcast)
	t.root.Add(t.api)
	return t
}

func (t *Tree) AddBroadcastService(svc suture.Service) suture.ServiceToken {
	return t.broadcast.Add(svc)
}

func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve blocks until ctx is cancelled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that outlived the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
