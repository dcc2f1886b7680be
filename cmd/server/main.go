package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/suPer8Hu/storyvoice/internal/auth"
	"github.com/suPer8Hu/storyvoice/internal/config"
	"github.com/suPer8Hu/storyvoice/internal/content"
	"github.com/suPer8Hu/storyvoice/internal/db"
	"github.com/suPer8Hu/storyvoice/internal/httpapi"
	"github.com/suPer8Hu/storyvoice/internal/httpapi/handlers"
	"github.com/suPer8Hu/storyvoice/internal/reminder"
	"github.com/suPer8Hu/storyvoice/internal/store/rabbitmq"
	"github.com/suPer8Hu/storyvoice/internal/store/redisstore"
	"github.com/suPer8Hu/storyvoice/internal/telemetry"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	gdb := db.Connect(cfg.DBDSN)
	models := append(telemetry.Models(), &auth.AuthToken{}, &reminder.Reminder{})
	if err := db.Migrate(gdb, models...); err != nil {
		slog.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	cs, err := content.Load(cfg.ContentPath)
	if err != nil {
		slog.Error("content load failed, serving without chapters", "path", cfg.ContentPath, "err", err)
		cs = content.New(nil)
	}

	var rds *redisstore.Store
	if cfg.RedisAddr != "" {
		rds = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rds.Ping(pctx); err != nil {
			slog.Warn("redis unavailable, token cache disabled", "addr", cfg.RedisAddr, "err", err)
			_ = rds.Close()
			rds = nil
		}
		cancel()
	}
	if rds != nil {
		defer rds.Close()
	}

	var notifier telemetry.Notifier
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			slog.Warn("rabbitmq unavailable, session events disabled", "err", err)
		} else {
			notifier = pub
			defer pub.Close()
		}
	}

	h := handlers.NewHandler(gdb, cfg, rds, notifier, cs)

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if st, err := cs.Sync(sctx, h.Catalog); err != nil {
		slog.Error("content sync failed", "err", err)
	} else {
		slog.Info("content synced", "chapters", st.Chapters, "scenes", st.Scenes, "options", st.Options, "mappings", st.Mappings)
	}
	cancel()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("server shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}
