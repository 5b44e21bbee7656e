package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Pair/internal/adapters/http"
	"github.com/dkeye/Pair/internal/adapters/natsfeed"
	sig "github.com/dkeye/Pair/internal/adapters/signal"
	"github.com/dkeye/Pair/internal/adapters/socketio"
	"github.com/dkeye/Pair/internal/app"
	"github.com/dkeye/Pair/internal/app/orch"
	"github.com/dkeye/Pair/internal/config"
	"github.com/dkeye/Pair/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	disp := app.NewDispatcher(nil)
	reg := app.NewRegistry(disp, cfg.RoomDefaults(), nil)
	conns := app.NewConnections(app.SimplePolicy{})

	var bus core.Broadcaster = conns
	if cfg.NatsURL != "" {
		nc, err := natsfeed.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("session feed disabled")
		} else {
			defer func() { _ = nc.Drain() }()
			bus = natsfeed.New(conns, nc, cfg.NatsSubject)
			log.Info().Str("url", cfg.NatsURL).Str("subject", cfg.NatsSubject).Msg("session feed enabled")
		}
	}

	rooms := orch.New(disp, reg, bus, cfg.Timing())
	handler := sig.NewHandler(rooms, conns, sig.NewRoomRateLimiter(cfg.CreateRateLimit, cfg.CreateRateInterval))
	ws := sig.NewSignalWSController(handler, sig.WSOptions{
		ReadLimit:   cfg.ReadLimit,
		PingPeriod:  cfg.PingPeriod,
		SendBuffer:  cfg.SendBuffer,
		CheckOrigin: sig.OriginChecker(cfg.AllowedOrigins),
	})

	deps := router.Deps{Signal: ws}
	if cfg.SocketIOEnabled {
		sio := socketio.New(handler, socketio.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			PingInterval:   cfg.PingPeriod,
			MaxBufferSize:  cfg.ReadLimit,
		})
		defer sio.Close()
		deps.SocketIO = sio.Handler()
	}

	r := router.SetupRouter(ctx, cfg, deps)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Pair server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Interface("rooms", rooms.Stats()).Msg("Server exited gracefully")
}
