// Package app wires storage, core managers, the sync bridge and the
// transport layers into a runnable server process.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"huddle/internal/config"
	"huddle/internal/core"
	"huddle/internal/storage"
	"huddle/internal/storage/memory"
	redisstore "huddle/internal/storage/redis"
	"huddle/internal/storage/sqlite"
	"huddle/internal/syncbridge"
	"huddle/internal/transport/httpapi"
	"huddle/internal/transport/ws"
)

// App owns the process-scoped resources and the HTTP server.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	registry        *core.Registry
	store           storage.Adapter
	log             *zerolog.Logger
}

// New constructs the application with the provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	store, redisClient, err := buildStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Info().Str("backend", string(cfg.Storage.Backend)).Msg("storage initialized")

	registry := core.NewRegistry()
	hub := ws.NewHub()

	users := core.NewUserManager(registry, store, logger)
	rooms := core.NewRoomManager(hub, store, users, core.RoomManagerOptions{
		BroadcastNewUserToLobby: cfg.BroadcastNewUserToLobby,
		SendLobbyUsers:          cfg.SendLobbyUsers,
		RoomLimit:               cfg.RoomLimit,
	}, logger)

	srv := core.NewServer(core.ServerOptions{
		Version:                 cfg.Version,
		WaitForPropsBeforeLobby: cfg.WaitForPropsBeforeLobby,
	}, registry, users, rooms, store, logger)

	// Multi-instance mode: the shared Redis backend carries the bridge.
	if redisClient != nil {
		pubsub := syncbridge.NewRedisPubSub(redisClient, cfg.Storage.Redis.KeyPrefix)
		bridge := syncbridge.New(pubsub, users, rooms, logger)
		users.SetPropertyPublisher(bridge)
		users.SetRemoteChannelFactory(bridge.RemoteChannel)
		attachBridge(srv, bridge, logger)
		logger.Info().Msg("cross-instance sync bridge enabled")
	}

	if _, err := rooms.CreateLobby(context.Background()); err != nil {
		return nil, fmt.Errorf("create lobby: %w", err)
	}

	return &App{
		server:          httpapi.NewServer(srv, hub, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		registry:        registry,
		store:           store,
		log:             logger,
	}, nil
}

func buildStorage(cfg *config.Config) (storage.Adapter, *goredis.Client, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return memory.New(), nil, nil

	case config.BackendSQLite:
		store, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		return redisstore.New(client, cfg.Storage.Redis.KeyPrefix), client, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// attachBridge subscribes each locally connected user to its bridge
// channels for the lifetime of the connection.
func attachBridge(srv *core.Server, bridge *syncbridge.Bridge, logger *zerolog.Logger) {
	var mu sync.Mutex
	cancels := make(map[string][]func())

	srv.OnConnect(func(user *core.User) {
		ctx := context.Background()
		var subs []func()

		if cancel, err := bridge.ListenConnection(ctx, user.ID); err != nil {
			logger.Warn().Err(err).Str("user_id", user.ID).Msg("subscribe connection channel")
		} else {
			subs = append(subs, cancel)
		}
		if cancel, err := bridge.WatchUser(ctx, user.ID); err != nil {
			logger.Warn().Err(err).Str("user_id", user.ID).Msg("subscribe user channel")
		} else {
			subs = append(subs, cancel)
		}

		mu.Lock()
		cancels[user.ID] = subs
		mu.Unlock()
	})

	srv.OnDisconnect(func(user *core.User) {
		mu.Lock()
		subs := cancels[user.ID]
		delete(cancels, user.ID)
		mu.Unlock()

		for _, cancel := range subs {
			cancel()
		}
	})
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup tears down the connection registry and storage.
func (a *App) cleanup() {
	a.registry.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close storage")
		} else {
			a.log.Info().Msg("storage closed")
		}
	}
}
