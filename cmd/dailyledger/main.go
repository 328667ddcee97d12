package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"dailyledger/internal/advice"
	"dailyledger/internal/auth"
	"dailyledger/internal/backend"
	"dailyledger/internal/cli"
	"dailyledger/internal/config"
	apphttp "dailyledger/internal/http"
	"dailyledger/internal/log"
	"dailyledger/internal/middleware/ratelimit"
	"dailyledger/internal/report"
	"dailyledger/internal/services"
	"dailyledger/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, nil)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("dailyledger stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	loc := cfg.Location()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger)

	store, err := factory.CreateStore(ctx, bcfg)
	if err != nil {
		return err
	}
	if store.Cleanup != nil {
		defer func() {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close snapshot store", log.FieldError, err)
			}
		}()
	}

	mirrorTarget, err := factory.CreateMirror(ctx, bcfg)
	if err != nil {
		return err
	}
	if mirrorTarget.Cleanup != nil {
		defer func() {
			if err := mirrorTarget.Cleanup(); err != nil {
				logger.Error("Failed to close mirror target", log.FieldError, err)
			}
		}()
	}

	var dispatcher *services.MirrorDispatcher
	sessionOpts := services.SessionOptions{Location: loc, Logger: logger}
	if mirrorTarget.Writer != nil {
		dispatcher = services.NewMirrorDispatcher(mirrorTarget.Writer, cfg.MirrorTimeout, logger)
		sessionOpts.Mirror = dispatcher
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.MirrorTimeout)
			defer cancel()
			if err := dispatcher.Close(closeCtx); err != nil {
				logger.Warn("Mirror pushes still in flight at shutdown", log.FieldError, err)
			}
			sent, failed := dispatcher.Stats()
			logger.Info("Mirror dispatcher closed", "sent", sent, "failed", failed)
		}()
	}

	gateway := storage.NewGateway(store.Store, logger)
	session := services.NewSessionService(gateway, sessionOpts)
	if err := session.Open(ctx); err != nil {
		return err
	}

	login := services.NewLoginState(session, dispatcher, logger)
	var google auth.GoogleIdentifier
	if cfg.GoogleSignInEnabled() {
		google = auth.NewGoogle(cfg.GoogleOAuthClientID, cfg.GoogleOAuthClientSecret, cfg.GoogleOAuthRedirectURL)
		logger.Info("Google sign-in enabled")
	}
	bridge := auth.NewBridge(auth.NewAccounts(), google, login, logger)
	defer bridge.Wait()

	var gen advice.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := advice.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Gemini unavailable, advice falls back to static text", log.FieldError, err)
		} else {
			gen = gemini
			logger.Info("Gemini advice enabled", "model", gemini.Model())
		}
	}

	scheduler, err := services.NewRolloverScheduler(session, cfg.RolloverInterval, loc, logger)
	if err != nil {
		return err
	}

	deps := apphttp.Deps{
		Session:   session,
		Auth:      bridge,
		Status:    login,
		Reports:   report.NewCache(time.Minute),
		Advice:    advice.NewService(gen, cfg.AdviceLanguage, time.Hour, logger),
		Snapshots: gateway,
		Rollover:  scheduler,
		Logger:    logger,
	}
	if dispatcher != nil {
		deps.Mirror = dispatcher
	}
	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	}, deps)

	logger.Info("Starting dailyledger",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"mirror", cfg.MirrorMode,
		"timezone", loc.String(),
		log.FieldDay, session.Today().String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		scheduler.Start(gctx)
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})
	return g.Wait()
}
