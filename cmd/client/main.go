package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meuser88/huddle/internal/adapters/capture"
	router "github.com/meuser88/huddle/internal/adapters/http"
	"github.com/meuser88/huddle/internal/adapters/rtc"
	"github.com/meuser88/huddle/internal/adapters/store"
	"github.com/meuser88/huddle/internal/adapters/ws"
	"github.com/meuser88/huddle/internal/app"
	"github.com/meuser88/huddle/internal/config"
	"github.com/meuser88/huddle/internal/core"
	"github.com/meuser88/huddle/internal/media"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	st, err := store.Connect(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("store connect")
	}

	device := capture.NewUDPDevice(capture.Ports{
		CameraAudio: cfg.CameraAudioPort,
		CameraVideo: cfg.CameraVideoPort,
		ScreenVideo: cfg.ScreenVideoPort,
	})
	localMedia := media.NewLocalMedia(device)

	relay := ws.NewRelay(cfg.RelayURL, rtc.DefaultConfig(cfg.StunURL), func() []core.LocalTrack {
		if s := localMedia.Current(); s != nil {
			return s.Tracks()
		}
		return nil
	})

	ctrl := app.NewController(st, relay, localMedia, core.LogNotifier{}, cfg.ChatPoll, cfg.RosterPoll)

	r := router.SetupRouter(cfg, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Huddle client started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	ctrl.Leave()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Client exited gracefully")
}
