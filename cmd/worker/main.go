package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/storyvoice/internal/config"
	"github.com/suPer8Hu/storyvoice/internal/db"
	"github.com/suPer8Hu/storyvoice/internal/store/rabbitmq"
	"github.com/suPer8Hu/storyvoice/internal/telemetry"
)

// The worker consumes session.updated events and recomputes the session's
// normalized scores.
func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if cfg.RabbitURL == "" {
		slog.Error("RABBIT_URL is required")
		os.Exit(1)
	}

	gdb := db.Connect(cfg.DBDSN)
	svc := telemetry.NewService(telemetry.NewRepo(gdb), nil, nil)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		slog.Error("rabbit dial", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		slog.Error("rabbit channel", "err", err)
		os.Exit(1)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		slog.Error("queue declare", "err", err)
		os.Exit(1)
	}

	// strict concurrency control
	concurrency := cfg.WorkerConcurrency
	if err := ch.Qos(concurrency, 0, false); err != nil {
		slog.Error("qos", "err", err)
		os.Exit(1)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		slog.Error("consume", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("worker started", "queue", cfg.RabbitQueue, "concurrency", concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				handleDelivery(ctx, ch, cfg.RabbitQueue, svc, workerID, d)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				slog.Warn("delivery channel closed")
				close(jobs)
				wg.Wait()
				return
			}
			jobs <- d
		}
	}
}

func handleDelivery(ctx context.Context, ch *amqp.Channel, queue string, svc *telemetry.Service, workerID int, d amqp.Delivery) {
	ev, err := rabbitmq.DecodeSessionEvent(d.Body)
	if err != nil {
		slog.Warn("bad message", "worker", workerID, "err", err)
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	sess, err := svc.Rescore(ctx, ev.SessionID)
	if err != nil {
		attempts := rabbitmq.Attempts(d.Headers)
		slog.Warn("rescore failed",
			"worker", workerID,
			"session_id", ev.SessionID,
			"attempt", attempts+1,
			"cost", time.Since(start).String(),
			"err", err,
		)
		if errors.Is(err, telemetry.ErrSessionNotFound) || attempts+1 >= rabbitmq.MaxAttempts {
			_ = d.Nack(false, false)
			return
		}
		if err := rabbitmq.Retry(ctx, ch, queue, d.Body, attempts); err != nil {
			slog.Error("retry publish failed", "session_id", ev.SessionID, "err", err)
			_ = d.Nack(false, false)
			return
		}
		_ = d.Ack(false)
		return
	}

	if err := d.Ack(false); err != nil {
		slog.Warn("ack failed", "worker", workerID, "session_id", ev.SessionID, "err", err)
	}
	slog.Debug("session rescored",
		"worker", workerID,
		"session_id", sess.SessionID,
		"gds", sess.NormalizedScoreGDS,
		"phq", sess.NormalizedScorePHQ,
		"cost", time.Since(start).String(),
	)
}
