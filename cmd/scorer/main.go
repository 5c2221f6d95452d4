package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/mirage-hunt/mirage/internal/adapters/nats"
	"github.com/mirage-hunt/mirage/internal/adapters/postgres"
	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/core/usecases"
	"github.com/mirage-hunt/mirage/internal/pkg/config"
	"github.com/mirage-hunt/mirage/internal/pkg/logging"
	"github.com/mirage-hunt/mirage/internal/workflows"
)

// The scorer consumes find events and runs one scoring workflow per
// (question, team) to maintain the points ledger.
func main() {
	cfg, err := config.Load("mirage-scorer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats publisher unavailable, standings will not be broadcast", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ScoreWorkflow)
	w.RegisterActivity(&workflows.ScoringActivities{
		Scores: usecases.NewScoreService(postgres.NewAwardRepo(db), events, cfg.Game.PointsPerFind),
	})
	if err := w.Start(); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer w.Stop()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "mirage-scorer")
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeFound(ctx, func(ctx context.Context, ev *domain.FoundEvent) error {
		return startScoring(ctx, c, cfg.Temporal.TaskQueue, ev)
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("scorer started", "task_queue", cfg.Temporal.TaskQueue)
	<-ctx.Done()
	slog.Info("scorer stopping")
}

// startScoring starts the workflow for the event. A workflow that already ran
// for the same pair counts as success so the message is acked.
func startScoring(ctx context.Context, c client.Client, taskQueue string, ev *domain.FoundEvent) error {
	in := workflows.ScoreInput{QuestionID: ev.QuestionID, TeamID: ev.TeamID, UserID: ev.UserID}
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                    workflows.WorkflowID(in),
		TaskQueue:             taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflows.ScoreWorkflow, in)

	var started *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case errors.As(err, &started):
		slog.Debug("find already scored", "question", ev.QuestionID, "team", ev.TeamID)
		return nil
	case err != nil:
		slog.Error("start scoring workflow", "question", ev.QuestionID, "team", ev.TeamID, "error", err)
		return err
	}
	slog.Info("scoring workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
