package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/pkg/metrics"
	"github.com/mirage-hunt/mirage/internal/pkg/telemetry"
)

// Syncer keeps the in-memory question set and the store in step: it seeds the
// cache at startup, periodically persists new credits and folds store-side
// additions back in.
type Syncer struct {
	cache    ports.SyncableQuestionCache
	repo     ports.QuestionRepository
	interval time.Duration
	// OnFlush runs after a successful flush that persisted at least one find.
	OnFlush func(ctx context.Context, persisted int)
}

// NewSyncer creates a Syncer.
func NewSyncer(cache ports.SyncableQuestionCache, repo ports.QuestionRepository, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Syncer{cache: cache, repo: repo, interval: interval}
}

// Seed loads every question and its persisted finds into the cache.
func (s *Syncer) Seed(ctx context.Context) error {
	questions, err := s.repo.ListWithFinds(ctx)
	if err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	if err := s.cache.Load(questions); err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	slog.Info("question cache seeded", "questions", len(questions))
	return nil
}

// Flush persists pending credits, then merges the store state into the cache.
// Credits stay pending when the store write fails and are retried next time.
func (s *Syncer) Flush(ctx context.Context) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSyncFlush)
	defer span.End()

	finds, seq := s.cache.PendingFinds()
	span.SetAttributes(attribute.Int(telemetry.AttrFinds, len(finds)))

	if len(finds) > 0 {
		if err := s.repo.SaveFinds(ctx, finds); err != nil {
			metrics.SyncFlushes.WithLabelValues("error").Inc()
			span.RecordError(err)
			return fmt.Errorf("save finds: %w", err)
		}
		s.cache.Ack(seq)
	}

	questions, err := s.repo.ListWithFinds(ctx)
	if err != nil {
		metrics.SyncFlushes.WithLabelValues("error").Inc()
		span.RecordError(err)
		return fmt.Errorf("reload questions: %w", err)
	}
	if added := s.cache.Merge(questions); added > 0 {
		slog.Info("new questions merged from store", "added", added)
	}

	metrics.SyncFlushes.WithLabelValues("ok").Inc()
	if len(finds) > 0 && s.OnFlush != nil {
		s.OnFlush(ctx, len(finds))
	}
	return nil
}

// Run flushes every interval until ctx is cancelled, then performs a final
// flush bounded by a short timeout.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := s.Flush(finalCtx); err != nil {
				slog.Error("final sync flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				slog.Warn("sync flush failed", "error", err)
			}
		}
	}
}
