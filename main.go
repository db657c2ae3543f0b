package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/victhorio/compound/agg"
	"github.com/victhorio/compound/agg/core"
	"github.com/victhorio/compound/agg/groq"
	"github.com/victhorio/compound/config"
	"github.com/victhorio/compound/logger"
	"github.com/victhorio/compound/render"
)

const exitInterrupted = 130

func main() {
	os.Exit(run())
}

func run() int {
	// a missing .env is fine, the key may already be exported
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logCloser, err := logger.Setup(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer logCloser.Close()

	log := logger.Named("main")

	store, closeStore, err := openStore(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeStore()

	sessionID := uuid.NewString()
	log.WithFields(logger.Fields{
		"session": sessionID,
		"model":   cfg.Model,
		"config":  cfg.Source,
		"history": cfg.History.Path,
	}).Info("session started")

	model := groq.NewModel(groq.ModelID(cfg.Model), groq.Options{
		BaseURL:   cfg.BaseURL,
		APIKeyEnv: cfg.APIKeyEnv,
	})
	agent := agg.NewAgent(cfg.SystemPrompt, model, store)

	renderer := render.NewRenderer(cfg.MaxStreamHeight)
	if cfg.Markdown {
		renderer.UseMarkdown(render.NewMarkdown(cfg.MarkdownStyle))
	}

	final, err := runTUI(&agent, sessionID, renderer)
	if err != nil {
		log.WithError(err).Error("terminal UI failed")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	u := agent.Usage(sessionID)
	log.WithFields(logger.Fields{
		"input":  u.Input,
		"output": u.Output,
		"total":  u.Total,
	}).Info("session ended")

	switch {
	case final.err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", final.err)
		return 1
	case final.interrupted:
		return exitInterrupted
	}

	if !u.IsZero() {
		printUsage(u)
	}
	return 0
}

// openStore keeps history in memory unless a SQLite path is configured.
func openStore(path string) (agg.Store, func(), error) {
	if path == "" {
		store := agg.NewEphemeralStore()
		return &store, func() {}, nil
	}

	store, err := agg.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Named("main").WithError(err).Warn("failed to close history store")
		}
	}, nil
}

func printUsage(u core.Usage) {
	fmt.Printf("\n\033[33;1mUsage:\033[0m\n")
	fmt.Printf("  \033[33mInput:\033[0m %d\n", u.Input)
	fmt.Printf("  \033[33mOutput:\033[0m %d\n", u.Output)
	fmt.Printf("  \033[33;1mTotal:\033[0m %d\n", u.Total)
}
