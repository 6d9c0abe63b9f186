package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/parley/internal/adapters/api"
	"github.com/dkeye/parley/internal/adapters/capture"
	"github.com/dkeye/parley/internal/adapters/channel"
	router "github.com/dkeye/parley/internal/adapters/http"
	"github.com/dkeye/parley/internal/adapters/term"
	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/app/orch"
	"github.com/dkeye/parley/internal/config"
	"github.com/dkeye/parley/internal/domain"
)

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	cmd := &cobra.Command{
		Use:           "parley",
		Short:         "Terminal client for a parley chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				log.Error().Err(err).Msg("failed to load config")
				return err
			}
			if err := run(cmd.Context(), cfg); err != nil {
				log.Error().Err(err).Msg("client stopped")
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("server", "", "REST base url (server_url)")
	flags.String("ws", "", "real-time channel url (ws_url)")
	flags.Int64("user-id", 0, "local user id")
	flags.String("username", "", "local username")
	flags.String("cookie", "", "session cookie sent with every request")
	flags.String("status-addr", "", "listen address for the local status API; empty disables it")
	flags.String("log-level", "", "zerolog level")
	for flag, key := range map[string]string{
		"server":      "server_url",
		"ws":          "ws_url",
		"user-id":     "user_id",
		"username":    "username",
		"cookie":      "session_cookie",
		"status-addr": "status_addr",
		"log-level":   "log_level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		zerolog.SetGlobalLevel(lvl)
	}

	me, err := domain.NewLocalUser(domain.UserID(cfg.UserID), cfg.Username)
	if err != nil {
		return err
	}
	clientID := uuid.NewString()

	rest := api.NewClient(api.Options{
		BaseURL:     cfg.ServerURL,
		Cookie:      cfg.SessionCookie,
		ClientID:    clientID,
		VoiceFormat: cfg.CaptureFormat,
	})
	view := term.NewView(os.Stdout)

	o := orch.New(64)
	link := channel.NewLink(channel.Options{
		URL:            cfg.WSURL,
		Cookie:         cfg.SessionCookie,
		ClientID:       clientID,
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		WriteWait:      cfg.WriteWait,
		RedialInterval: cfg.RedialInterval,
	}, o)
	rt := app.NewRuntime(ctx, app.Deps{
		LocalUser:     *me,
		Link:          link,
		History:       rest,
		Conversations: rest,
		Search:        rest,
		Uploader:      rest,
		Device:        capture.NewDevice(cfg.CaptureCommand, cfg.CaptureChunkSize),
		View:          view,
		List:          view,
		Clock:         app.NewTimerClock(o),
		Poster:        o,
		Timings: app.Timings{
			TypingIdle:     cfg.TypingIdle,
			TypingExpiry:   cfg.TypingExpiry,
			SearchDebounce: cfg.SearchDebounce,
		},
	})
	o.Bind(rt, link)

	loopErr := make(chan error, 1)
	go func() { loopErr <- o.Run(ctx) }()

	if err := link.Connect(ctx); err != nil {
		o.Teardown()
		<-o.Done()
		return err
	}

	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = &http.Server{Addr: cfg.StatusAddr, Handler: router.SetupRouter(cfg, o)}
		go func() {
			log.Info().Str("module", "status").Str("addr", cfg.StatusAddr).Msg("status API started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Str("module", "status").Err(err).Msg("server error")
			}
		}()
	}

	log.Info().Str("user", me.Username).Str("client_id", clientID).Msg("parley client started")

	go func() {
		quit, err := term.NewDriver(os.Stdin, os.Stdout, o).Run()
		if err != nil {
			log.Error().Str("module", "term").Err(err).Msg("input closed")
		}
		if !quit {
			o.Teardown()
		}
	}()

	err = <-loopErr
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Str("module", "status").Err(err).Msg("status API forced to shutdown")
		}
	}
	log.Info().Msg("client exited")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
