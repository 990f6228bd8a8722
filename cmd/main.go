package main

import (
	"MediCare/config"
	"MediCare/database"
	"MediCare/routes"
	"MediCare/services"
	"MediCare/utils"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medicare",
		Short: "Medication adherence and caregiver alert API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(out io.Writer, cfg *config.AppConfig) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "Apply schema migrations before serving")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and seed roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, cfg)

			db, err := database.InitDB(cmd.Context(), cfg.DBURL, cfg.IsDev(), logger)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.RunMigrations(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info().Msg("migrations applied")
			return nil
		},
	}
}

func pushSender(cfg *config.AppConfig, logger zerolog.Logger) services.PushSender {
	if cfg.PushProvider == "log" {
		return utils.NewLogPushSender(logger)
	}
	return utils.NewExpoPushSender(cfg.ExpoPushURL, &http.Client{Timeout: cfg.PushTimeout})
}

func mailer(cfg *config.AppConfig) services.Mailer {
	if !cfg.SMTPEnabled() {
		return nil
	}
	return utils.NewMailer(utils.MailConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
	})
}

func runServer(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		bootLog := newLogger(os.Stderr, nil)
		bootLog.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	logger := newLogger(os.Stdout, cfg)

	ctx := context.Background()

	db, err := database.InitDB(ctx, cfg.DBURL, cfg.IsDev(), logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		return err
	}
	defer database.Close(db)

	if migrate {
		if err := database.RunMigrations(db); err != nil {
			logger.Error().Err(err).Msg("failed to migrate database")
			return err
		}
	}

	redisClient, err := database.NewRedisClient(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize Redis client")
		return err
	}
	defer redisClient.Close()

	handler, err := routes.SetupRoutes(routes.Dependencies{
		Config: cfg,
		DB:     db,
		Redis:  redisClient,
		Push:   pushSender(cfg, logger),
		Mailer: mailer(cfg),
		Now:    time.Now,
		Log:    logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to build routes")
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
		IdleTimeout:    30 * time.Second,
	}

	serveErr := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logger.Error().Err(err).Msg("server failed")
		return err
	case <-stop:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	logger.Info().Msg("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	wg.Wait()
	database.LogPoolStats(redisClient, logger)
	logger.Info().Msg("server exited gracefully")
	return nil
}
