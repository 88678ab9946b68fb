package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/slipcheck/config"
	"github.com/wudi/slipcheck/dependency"
	"github.com/wudi/slipcheck/fields"
	"github.com/wudi/slipcheck/observability"
	"github.com/wudi/slipcheck/pipeline"
)

type options struct {
	configPath string
	jsonOut    bool
	workers    int
	engine     string
	modelDir   string
	logLevel   string
	files      []string
}

// fileResult is one line of output. Err is set when the slip could not be
// processed at all.
type fileResult struct {
	Path      string         `json:"path"`
	Record    *fields.Record `json:"record,omitempty"`
	RiskScore *float64       `json:"risk_score,omitempty"`
	Amount    *float64       `json:"amount,omitempty"`
	Err       string         `json:"error,omitempty"`
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "slipcheck: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		if tool, ok := dependency.Tool(err); ok {
			color.Red("slipcheck: %s is missing or not working; install it and make sure it is on PATH\n", tool)
		}
		fmt.Fprintf(os.Stderr, "slipcheck: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: slipcheck [flags] <slip> [slip...]\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.configPath, "config", "", "Path to a YAML config (default: slipcheck.yaml, config.yaml, ~/.config/slipcheck/config.yaml)")
	flag.BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	flag.IntVar(&opts.workers, "workers", runtime.NumCPU(), "Number of slips processed concurrently")
	flag.StringVar(&opts.engine, "engine", "", "OCR engine: library or cli (overrides config)")
	flag.StringVar(&opts.modelDir, "models", "", "Model directory (overrides config and MODEL_DIR)")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return options{}, fmt.Errorf("missing slip path")
	}
	if opts.workers < 1 {
		return options{}, fmt.Errorf("workers must be at least 1")
	}
	opts.files = flag.Args()
	return opts, nil
}

func run(opts options) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.engine != "" {
		cfg.OCR.Engine = opts.engine
	}
	if opts.modelDir != "" {
		cfg.Models.Dir = opts.modelDir
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger := observability.NewStdLogger(log.New(os.Stderr, "slipcheck: ", log.LstdFlags), observability.ParseLevel(cfg.Log.Level))
	p, err := pipeline.New(*cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Warn("close models", observability.Error("error", cerr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := processAll(ctx, p, opts.files, opts.workers)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		return writeJSON(os.Stdout, results)
	}
	writeText(color.Output, results)
	return nil
}

// processAll runs every file through the pipeline with at most workers in
// flight. Per-file read errors are reported in the result; a dependency
// failure stops the whole run since every other file would hit it too.
func processAll(ctx context.Context, p *pipeline.Pipeline, files []string, workers int) ([]fileResult, error) {
	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			results[i] = fileResult{Path: path}
			data, err := os.ReadFile(path)
			if err != nil {
				results[i].Err = err.Error()
				return nil
			}
			res, err := p.Process(gctx, data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			score := res.RiskScore
			results[i].Record = &res.Record
			results[i].RiskScore = &score
			results[i].Amount = res.Amount()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeJSON(w io.Writer, results []fileResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(results)
}

func writeText(w io.Writer, results []fileResult) {
	for _, r := range results {
		fmt.Fprintln(w, r.Path)
		if r.Err != "" {
			color.New(color.FgRed).Fprintf(w, "  error: %s\n", r.Err)
			continue
		}
		for _, f := range fields.All {
			v := r.Record.Get(f)
			if v == nil {
				color.New(color.Faint).Fprintf(w, "  %-14s -\n", f)
				continue
			}
			fmt.Fprintf(w, "  %-14s %s\n", f, *v)
		}
		band(*r.RiskScore).Fprintf(w, "  %-14s %.2f\n", "risk", *r.RiskScore)
	}
}

// band colours a risk score: high from 0.7, elevated from 0.4.
func band(score float64) *color.Color {
	switch {
	case score >= 0.7:
		return color.New(color.FgRed, color.Bold)
	case score >= 0.4:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
