package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/natuki53/Walleca/internal/extract"
	"github.com/natuki53/Walleca/internal/jobs"
	"github.com/natuki53/Walleca/internal/receipt"
	"github.com/natuki53/Walleca/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("walleca")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "walleca.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./receipts", "Storage directory path")
		engineType     = fs.StringLong("engine", "tesseract", "Recognition engine: 'tesseract' or 'gemini'")
		languages      = fs.StringLong("lang", "jpn,eng", "Tesseract languages, comma separated")
		engineVerbose  = fs.BoolLong("engine-verbose", "Log per-attempt engine output")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		workers        = fs.IntLong("workers", 2, "Recognition worker count")
		singlePass     = fs.BoolLong("single-pass", "Recognize only the original image, skipping preprocessed variants")
		maxWidth       = fs.IntLong("max-width", 1600, "Downscale preprocessed variants wider than this many pixels")
		binarize       = fs.IntLong("binarize-threshold", 160, "Luminance threshold for the binarized variant (0-255)")
		attemptTimeout = fs.DurationLong("attempt-timeout", 30*time.Second, "Per recognition attempt timeout")
		jobTimeout     = fs.DurationLong("job-timeout", 3*time.Minute, "Whole job timeout covering all attempts")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("WALLECA"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize recognition engine based on type
	var engine scanning.Engine
	switch *engineType {
	case "tesseract":
		slog.Info("Initializing tesseract engine...", "languages", *languages)
		engine = scanning.NewTesseract(scanning.TesseractConfig{
			Languages: strings.Split(*languages, ","),
			DPI:       scanning.DefaultTesseractConfig.DPI,
			Verbose:   *engineVerbose,
		})
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini engine...", "model", *geminiModel)
		engine, err = scanning.NewGemini(ctx, apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid engine type", "type", *engineType, "valid", "tesseract or gemini")
		os.Exit(1)
	}
	defer engine.Close()

	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Recognition pipeline: queue feeding workers that share one engine
	queue := jobs.NewMemoryQueue(0, jobs.DefaultRetryPolicy)
	defer queue.Close()

	variantOpts := scanning.VariantOptions{
		MultiPass:         !*singlePass,
		MaxWidth:          *maxWidth,
		BinarizeThreshold: uint8(*binarize),
		ContrastBoost:     scanning.DefaultVariantOptions.ContrastBoost,
	}
	orchestrator := scanning.NewOrchestrator(engine, extract.New(), variantOpts, *attemptTimeout)

	consumer := receipt.NewConsumer(queue, db, store, orchestrator, *workers, *jobTimeout)
	consumer.Start(ctx)

	receiptService := receipt.NewService(db, store, queue)
	server := receipt.NewServer(receiptService)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "workers", *workers, "engine", *engineType)

	// Wait for interrupt signal
	<-ctx.Done()

	slog.Info("Shutting down...")
	queue.Close()
	consumer.Wait()
}
