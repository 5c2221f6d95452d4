package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mirage-hunt/mirage/internal/adapters/postgres"
	"github.com/mirage-hunt/mirage/internal/core/domain"
	"github.com/mirage-hunt/mirage/internal/pkg/config"
	"github.com/mirage-hunt/mirage/internal/pkg/logging"
)

const usage = `usage:
  ingestor load <manifest.json>   seed questions, teams and memberships
  ingestor backup <out.json>      write questions with answers and finds
  ingestor reset [-y]             clear all finds and awards; a running API
                                  keeps its in-memory finds until restarted`

// A running API never shrinks its cached finds, so a reset only shows once it
// restarts.
const resetPrompt = "Clear every find and award? A running API keeps its in-memory finds until it is restarted. [y/N] "

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load("mirage-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	questions := postgres.NewQuestionRepo(db)
	teams := postgres.NewTeamRepo(db)
	awards := postgres.NewAwardRepo(db)

	switch os.Args[1] {
	case "load":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		err = load(ctx, os.Args[2], questions, teams)
	case "backup":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		err = backup(ctx, os.Args[2], questions, teams)
	case "reset":
		if !(len(os.Args) > 2 && os.Args[2] == "-y") && !confirm(os.Stdin, os.Stdout, resetPrompt) {
			slog.Info("reset aborted")
			return
		}
		err = reset(ctx, questions, awards)
	default:
		log.Fatalf("unknown command %q\n%s", os.Args[1], usage)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func load(ctx context.Context, path string, questions *postgres.QuestionRepo, teams *postgres.TeamRepo) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	qs, ts, err := ParseManifest(f)
	if err != nil {
		return err
	}

	if err := questions.UpsertBatch(ctx, qs); err != nil {
		return fmt.Errorf("questions: %w", err)
	}
	if err := teams.UpsertBatch(ctx, ts); err != nil {
		return fmt.Errorf("teams: %w", err)
	}

	// Finds carried over from a backup.
	var finds []domain.Find
	now := time.Now().UTC()
	for _, q := range qs {
		for _, teamID := range q.FoundBy {
			finds = append(finds, domain.Find{QuestionID: q.ID, TeamID: teamID, FoundAt: now})
		}
	}
	if len(finds) > 0 {
		if err := questions.SaveFinds(ctx, finds); err != nil {
			return fmt.Errorf("finds: %w", err)
		}
	}

	slog.Info("manifest loaded", "path", path, "questions", len(qs), "teams", len(ts), "finds", len(finds))
	return nil
}

func backup(ctx context.Context, path string, questions *postgres.QuestionRepo, teams *postgres.TeamRepo) error {
	qs, err := questions.ListWithFinds(ctx)
	if err != nil {
		return fmt.Errorf("questions: %w", err)
	}
	ts, err := teams.List(ctx)
	if err != nil {
		return fmt.Errorf("teams: %w", err)
	}

	data, err := json.MarshalIndent(BackupOf(qs, ts), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	slog.Info("backup written", "path", path, "questions", len(qs), "teams", len(ts))
	return nil
}

func reset(ctx context.Context, questions *postgres.QuestionRepo, awards *postgres.AwardRepo) error {
	if err := questions.ResetFinds(ctx); err != nil {
		return fmt.Errorf("finds: %w", err)
	}
	if err := awards.Reset(ctx); err != nil {
		return fmt.Errorf("awards: %w", err)
	}
	slog.Info("finds and awards cleared; restart the API to drop its cached finds")
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
