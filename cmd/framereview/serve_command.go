package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sendrec/framereview/internal/auth"
	"github.com/sendrec/framereview/internal/composite"
	"github.com/sendrec/framereview/internal/config"
	"github.com/sendrec/framereview/internal/database"
	"github.com/sendrec/framereview/internal/metrics"
	"github.com/sendrec/framereview/internal/review"
	"github.com/sendrec/framereview/internal/server"
	"github.com/sendrec/framereview/internal/storage"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the review API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply database migrations on startup")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, migrate bool) error {
	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := database.ConnectWithOptions(startCtx, cfg.Database.URL, database.PoolOptions{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if migrate {
		if err := db.Migrate(cfg.Database.URL); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
		slog.Info("database migrations applied")
	}

	store, err := storage.New(startCtx, storage.Config{
		Endpoint:       cfg.Storage.Endpoint,
		PublicEndpoint: cfg.Storage.PublicEndpoint,
		Bucket:         cfg.Storage.MediaBucket,
		AccessKey:      cfg.Storage.AccessKey,
		SecretKey:      cfg.Storage.SecretKey,
		Region:         cfg.Storage.Region,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	attachments := store.WithBucket(cfg.Storage.AttachmentBucket)
	if err := attachments.EnsureBucket(startCtx); err != nil {
		return fmt.Errorf("attachment bucket check failed: %w", err)
	}
	if origins := cfg.CORSOriginList(); len(origins) > 0 {
		if err := attachments.SetCORS(startCtx, origins); err != nil {
			slog.Warn("could not set attachment bucket CORS", "error", err)
		}
	}
	slog.Info("storage ready", "media_bucket", store.Bucket(), "attachment_bucket", attachments.Bucket())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewReview(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	repo := review.NewPgRepository(db.Pool, cfg.Review.DefaultFrameRate)
	exporter := composite.NewExporter(composite.NewFFmpeg(cfg.Review.FFmpegPath, cfg.Review.ExportTimeout))
	sessions := review.NewSessions(repo, review.Deps{
		Resolver:  review.NewResolver(store, cfg.Storage.SignedURLTTL),
		Frames:    review.NewFrameStore(repo),
		Thread:    review.NewThreadLoader(repo, attachments, cfg.Storage.SignedURLTTL, cfg.Review.CommentPageSize),
		Committer: review.NewCommitter(repo, attachments, exporter, m),
		Metrics:   m,
		Canvas:    review.CanvasSize{Width: cfg.Review.CanvasWidth, Height: cfg.Review.CanvasHeight},
	}, cfg.Review.SessionTTL)

	srv := server.New(server.Config{
		Pinger:    db,
		Verifier:  auth.NewVerifier(cfg.Auth.JWTSecret),
		Review:    review.NewHandler(sessions),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		BaseURL:   cfg.Server.BaseURL,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("framereview listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		slog.Info("shutdown complete", "open_sessions", sessions.Count())
		return nil
	})
	return g.Wait()
}
