package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/ais"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/authz"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/broadcast"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/config"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/demo"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/simulator"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/store"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/supervisor"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/visibility"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	seed := flag.Bool("demo", false, "Seed the demo fleet into the sqlite store; the memory store is always seeded")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	logging.Init(cfg.Logging)

	if err := run(cfg, *seed); err != nil {
		logging.Fatal().Err(err).Msg("server stopped")
	}
}

// loadConfig reads path, or falls back to the built-in defaults when the
// file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Info().Str("path", path).Msg("config file not found, using defaults")
		cfg = config.Default()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

type closer interface{ Close() error }

// openStore returns the configured vessel store, seeded with the demo fleet
// when requested.
func openStore(ctx context.Context, cfg config.StoreConfig, seed bool) (vessel.Store, closer, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := store.OpenSQLite(cfg.Path, cfg.BusyTimeout)
		if err != nil {
			return nil, nil, err
		}
		if seed {
			if _, err := demo.Seed(ctx, db, time.Now()); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		logging.Info().Str("path", cfg.Path).Msg("using sqlite vessel store")
		return db, db, nil
	default:
		mem := store.NewMemory()
		if _, err := demo.Seed(ctx, demo.Memory(mem), time.Now()); err != nil {
			return nil, nil, err
		}
		logging.Info().Int("vessels", mem.Count()).Msg("using in-memory vessel store")
		return mem, nil, nil
	}
}

func run(cfg *config.Config, seed bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	vessels, c, err := openStore(ctx, cfg.Store, seed)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if c != nil {
		defer c.Close()
	}

	var (
		feed       ais.Feed = ais.StoreFeed{Store: vessels}
		feedSource          = "store"
	)
	if cfg.AIS.Enabled {
		feed = ais.NewHTTPFeed(cfg.AIS, &http.Client{Timeout: cfg.AIS.Timeout})
		feedSource = "aishub"
	}
	engine := ais.NewEngine(feed, vessels, ais.NewHealth(cfg.AIS.FailureThreshold))

	policy := visibility.NewPolicy(cfg.Visibility.FallbackToFullVisibility)
	registry := subscription.NewRegistry()
	hub := ws.NewHub(registry, cfg.Server.MaxConnections, cfg.Server.ControlRate, cfg.Server.ControlBurst)

	broadcastSim := simulator.New(simulator.Options{Jitter: cfg.Simulator.BroadcastJitter, MaxSpeed: cfg.Simulator.MaxSpeed}, nil)
	sched := broadcast.NewScheduler(broadcast.Options{
		Store:     vessels,
		Registry:  registry,
		Policy:    policy,
		Sink:      hub,
		Simulator: broadcastSim,
		AIS:       engine,
	})

	tree := supervisor.NewTree(logging.NewSlogLogger(), cfg.Supervisor)
	for _, ch := range subscription.Channels {
		cc, ok := cfg.Channel(string(ch))
		if !ok || cc.Disabled {
			continue
		}
		bbox := cc.BBox
		task, err := sched.AddChannel(ch, broadcast.ChannelConfig{
			Interval:     cc.Interval,
			Source:       broadcast.Source(cc.Source),
			WriteThrough: cc.WriteThrough,
			BBox:         &bbox,
		})
		if err != nil {
			return err
		}
		tree.AddBroadcastService(task)
		logging.Info().Str("channel", string(ch)).Dur("interval", cc.Interval).Str("source", cc.Source).
			Bool("write_through", cc.WriteThrough).Msg("channel scheduled")
	}

	if cfg.Simulator.RefreshEnabled {
		refreshSim := simulator.New(simulator.Options{Jitter: cfg.Simulator.RefreshJitter, MaxSpeed: cfg.Simulator.MaxSpeed}, nil)
		tree.AddBroadcastService(simulator.NewRefresher(vessels, refreshSim, cfg.Simulator.RefreshInterval))
	}

	enforcer, err := authz.NewEnforcer(cfg.Auth.PolicyPath)
	if err != nil {
		return fmt.Errorf("load channel policy: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		logging.Warn().Bool("allow_anonymous", cfg.Auth.AllowAnonymous).Msg("no jwt secret configured, bearer tokens are rejected")
	}

	server := ws.NewServer(ws.Options{
		Config:     cfg.Server,
		Auth:       ws.NewAuthenticator(cfg.Auth),
		Authz:      enforcer,
		Hub:        hub,
		Registry:   registry,
		Scheduler:  sched,
		Store:      vessels,
		AIS:        engine,
		Policy:     policy,
		FeedSource: feedSource,
	})

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	tree.AddAPIService(supervisor.NewHTTPService(httpServer, cfg.Supervisor.ShutdownTimeout))

	logging.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Str("feed", feedSource).Msg("fleet tracker starting")

	err = tree.Serve(ctx)
	hub.CloseAll()
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, u := range report {
			logging.Warn().Str("service", u.Name).Msg("service did not stop in time")
		}
	}
	logging.Info().Msg("shutdown complete")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
