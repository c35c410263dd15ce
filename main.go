package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-ledger/internal/api"
	"github.com/insightdelivered/statement-ledger/internal/config"
	"github.com/insightdelivered/statement-ledger/internal/engine"
	"github.com/insightdelivered/statement-ledger/internal/extractor"
	"github.com/insightdelivered/statement-ledger/internal/ledger"
	"github.com/insightdelivered/statement-ledger/internal/logger"
	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/profile"
	"github.com/insightdelivered/statement-ledger/internal/writer"
)

const version = "1.0.0"

func main() {
	// CLI flags
	profileFlag := flag.String("profile", "", "Institution profile (auto-detected if omitted)")
	formatFlag := flag.String("format", "csv", "Output format: csv, xlsx, json")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with the format's extension)")
	configFlag := flag.String("config", "", "Config file (defaults to $LEDGER_CONFIG or ~/.config/statement-ledger/config.toml)")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API instead of converting files")
	staticFlag := flag.String("static", "", "Directory with the upload UI served by --serve")
	headerFlag := flag.Bool("header", true, "Include account metadata rows in CSV")
	profilesFlag := flag.Bool("profiles", false, "List institution profiles and exit")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Statement Ledger
by Insight Delivered (QEA AutoLens)

Reconstructs per-account transaction ledgers from bank statements and
reconciles them against the printed opening and closing balances.

Usage:
  statement-ledger [flags] <statement.pdf|statement.txt> [...]
  statement-ledger --serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect institution and write statement.csv
  statement-ledger statement.pdf

  # Named profile, one workbook sheet per account
  statement-ledger --profile=comafi --format=xlsx statement.pdf

  # JSON to a chosen path
  statement-ledger --format=json --output=ledger.json statement.pdf

  # HTTP API on the configured address
  statement-ledger --serve
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-ledger v%s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatalf("Config error: %v\n", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	reg, err := profile.Builtin()
	if err != nil {
		fatalf("Loading built-in profiles: %v\n", err)
	}
	if cfg.Profiles.Dir != "" {
		if err := reg.LoadDir(cfg.Profiles.Dir); err != nil {
			fatalf("Loading profiles from %s: %v\n", cfg.Profiles.Dir, err)
		}
	}

	if *profilesFlag {
		for _, p := range reg.Profiles() {
			fmt.Printf("  %-12s %s\n", p.Name, p.Institution)
		}
		os.Exit(0)
	}

	eng := engine.New(reg, engine.OptionsFromConfig(cfg.Engine))

	if *serveFlag {
		if err := serve(cfg, reg, eng, *staticFlag, log); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	format := strings.ToLower(*formatFlag)
	if _, ok := writers(*headerFlag)[format]; !ok {
		fatalf("Unknown format %q. Supported: csv, xlsx, json\n", *formatFlag)
	}

	name := *profileFlag
	if name == "" {
		name = cfg.Profiles.Default
	}

	ctx := logger.WithContext(context.Background(), log)
	inputFiles := flag.Args()
	for _, inputPath := range inputFiles {
		outPath := *outputFlag
		// An explicit output path only makes sense for a single input
		if outPath == "" || len(inputFiles) > 1 {
			outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + format
		}
		if err := processFile(ctx, eng, inputPath, name, format, outPath, *headerFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

type fileWriter interface {
	ledger.Writer
	WriteToFile(path string, doc ledger.Document) error
}

func writers(includeHeader bool) map[string]fileWriter {
	return map[string]fileWriter{
		"csv":  &writer.CSVWriter{IncludeHeader: includeHeader},
		"xlsx": &writer.XLSXWriter{},
		"json": &writer.JSONWriter{Indent: true},
	}
}

func processFile(ctx context.Context, eng *engine.Engine, inputPath, profileName, format, outPath string, includeHeader bool) error {
	// Validate input file
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	pages, err := extractor.Open(inputPath)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	fmt.Printf("  Extracted text from %d page(s)\n", len(pages))

	run, err := eng.Run(ctx, pages, profileName)
	if err != nil {
		if errors.Is(err, models.ErrUnknownProfile) {
			return fmt.Errorf("%w\n  List profiles with --profiles", err)
		}
		return err
	}

	fmt.Printf("  Using %s profile\n", run.Profile)

	doc := ledger.NewDocument(run)
	if err := writers(includeHeader)[format].WriteToFile(outPath, doc); err != nil {
		return fmt.Errorf("%s write failed: %w", strings.ToUpper(format), err)
	}

	fmt.Printf("  Output: %s\n", outPath)

	// Print summary
	for _, r := range doc.Reports {
		fmt.Printf("  Account %s (%s): %d credit(s), %d debit(s), %s",
			r.AccountID, r.Currency, len(r.Credits), len(r.Debits), r.State)
		if r.Correction != "" && r.Correction != "none" {
			fmt.Printf(", %s", r.Correction)
		}
		fmt.Println()
	}
	for _, w := range doc.Diagnostics.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	if len(doc.Reports) == 0 {
		fmt.Println("  Warning: No accounts found. The statement may not match the profile's patterns.")
		fmt.Println("  Try specifying the institution explicitly with --profile if auto-detection was used.")
	}

	fmt.Println("  Done.")
	return nil
}

func serve(cfg config.Config, reg *profile.Registry, eng *engine.Engine, staticDir string, log zerolog.Logger) error {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             32 << 20,
	})
	h := &api.Handler{
		Engine:         eng,
		Registry:       reg,
		DefaultProfile: cfg.Profiles.Default,
		Version:        version,
		StaticDir:      staticDir,
		Log:            log,
	}
	h.RegisterRoutes(app)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutting down")
		_ = app.Shutdown()
	}()

	log.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("listening")
	return app.Listen(cfg.Server.Addr)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
