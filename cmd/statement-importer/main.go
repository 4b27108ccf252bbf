package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/bank-statement-importer/internal/accounts"
	"github.com/lox/bank-statement-importer/internal/category"
	"github.com/lox/bank-statement-importer/internal/commands"
	"github.com/lox/bank-statement-importer/internal/importer"
	"github.com/lox/bank-statement-importer/internal/money"
	"github.com/lox/bank-statement-importer/internal/types"
)

type CLI struct {
	commands.CommonConfig
	commands.CategorizerConfig

	Files        []string `arg:"" help:"Statement files to import (CSV or extracted PDF text)" type:"existingfile"`
	Format       string   `help:"Statement format" default:"auto" enum:"auto,csv,pdf"`
	DateOrder    string   `help:"Numeric date ordering" default:"auto" enum:"auto,us,day-first"`
	UserID       string   `help:"User ID for account matching"`
	SaveAccounts bool     `help:"Persist detected accounts to the account database" default:"false"`
	Concurrency  int      `help:"Number of files to import concurrently" default:"4"`
	NoProgress   bool     `help:"Disable progress bar" default:"false"`
}

// fileResult pairs one input file with its import outcome for output.
type fileResult struct {
	File   string              `json:"file"`
	Result *types.ImportResult `json:"result"`
}

func (c *CLI) Run() error {
	logger := log.New(os.Stderr)

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", "error", err)
	}
	logger.SetLevel(level)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	reconciler := category.NewReconciler(logger)

	registry := importer.NewRegistry()
	registry.Register(importer.NewCSVImporter(logger, reconciler))
	registry.Register(importer.NewPDFImporter(logger, reconciler))

	opts := importer.Options{UserID: c.UserID}

	switch c.DateOrder {
	case "us":
		opts.Dialect = money.DialectUS
		opts.ForceDialect = true
	case "day-first":
		opts.Dialect = money.DialectDayFirst
		opts.ForceDialect = true
	}

	if c.OpenAIKey != "" {
		if c.OpenAIBaseURL != "" {
			opts.Baseline = category.NewOpenAISourceWithBaseURL(logger, c.OpenAIKey, c.OpenAIBaseURL, c.OpenAIModel)
		} else {
			opts.Baseline = category.NewOpenAISource(logger, c.OpenAIKey, c.OpenAIModel)
		}
	}

	var store *accounts.Store
	if c.UserID != "" {
		store, err = accounts.New(c.DataDir, logger)
		if err != nil {
			logger.Fatal("Failed to open account database", "error", err)
		}
		defer store.Close()
		opts.Accounts = store
	}

	var progress importer.Progress = importer.NewNoopProgress()
	if !c.NoProgress {
		progress = importer.NewBarProgress(len(c.Files))
	}

	results := make([]fileResult, len(c.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i, path := range c.Files {
		i, path := i, path
		g.Go(func() error {
			result, err := c.importFile(gctx, logger, registry, opts, path)
			if err != nil {
				return fmt.Errorf("importing %s: %w", path, err)
			}
			results[i] = fileResult{File: path, Result: result}
			_ = progress.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("Import failed", "error", err)
	}
	progress.Close()

	if c.SaveAccounts && store != nil {
		for _, fr := range results {
			if fr.Result.DetectedAccount == nil {
				continue
			}
			id, err := store.Upsert(ctx, c.UserID, *fr.Result.DetectedAccount)
			if err != nil {
				logger.Fatal("Failed to save account", "error", err)
			}
			logger.Info("Saved detected account", "file", fr.File, "account", id)
		}
	}

	for _, fr := range results {
		logger.Info("Imported statement", "file", fr.File,
			"transactions", fr.Result.SuccessCount, "errors", fr.Result.ErrorCount)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling results: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// importFile resolves the format for one file and runs its importer.
func (c *CLI) importFile(ctx context.Context, logger *log.Logger, registry *importer.Registry, opts importer.Options, path string) (*types.ImportResult, error) {
	format := c.Format
	if format == "auto" {
		format = detectFormat(path)
	}
	imp, ok := registry.Get(format)
	if !ok {
		return nil, fmt.Errorf("unknown format %q (available: %v)", format, registry.List())
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	opts.Filename = filepath.Base(path)
	logger.Debug("importing file", "path", path, "format", format)
	return imp.Import(ctx, file, opts)
}

// detectFormat picks an importer from the file extension. Anything that
// is not a CSV is treated as extracted PDF text.
func detectFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "csv"
	}
	return "pdf"
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("statement-importer"),
		kong.Description("Imports bank and brokerage statements into normalized transactions"),
		kong.UsageOnError(),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
