package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/veridata-go/internal/config"
	"github.com/raphaelgruber/veridata-go/internal/db"
	"github.com/raphaelgruber/veridata-go/internal/knowledge"
	"github.com/raphaelgruber/veridata-go/internal/llm"
	"github.com/raphaelgruber/veridata-go/internal/metrics"
	"github.com/raphaelgruber/veridata-go/internal/openai"
	"github.com/raphaelgruber/veridata-go/internal/server"
	"github.com/raphaelgruber/veridata-go/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the veridata analysis server",
	Long: `Start the HTTP server that hosts the analysis pipeline.

The server connects to SurrealDB, initializes the schema, and exposes the
job API. Analysis runs are launched via POST /api/analysis (or the
'veridata analyze' command) and polled via GET /api/jobs/{id}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// Serve wires the full pipeline and runs the HTTP server until a shutdown
// signal arrives. Shared by `veridata serve` and the standalone server binary.
func Serve() error {
	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("veridata starting",
		"version", Version,
		"surrealdb_url", cfg.SurrealDBURL,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"verify_model", cfg.VerifyModel,
	)

	dbClient, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(context.Background()); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	if err := dbClient.InitSchema(ctx); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}

	model, err := llm.NewModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	index, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if err != nil {
		return fmt.Errorf("init knowledge index: %w", err)
	}

	stats := metrics.NewCollector()

	jobs := service.NewJobRegistry(logger)
	jobs.SetRetention(cfg.JobTTL, cfg.SweepInterval)
	go jobs.RunSweeper(ctx.Done())

	analysis := service.NewAnalysisService(
		dbClient,
		service.NewStructurer(model, logger),
		knowledge.NewBuilder(index, stats, logger),
		service.NewVerifier(index, cfg.VerifyModel, logger),
		jobs,
		stats,
		cfg.BatchSize,
		logger,
	)

	srv := server.New(server.Deps{
		Jobs:     jobs,
		Analysis: analysis,
		Stats:    stats,
		Logger:   logger,
	})

	return srv.Run(ctx, cfg.ServerPort)
}
