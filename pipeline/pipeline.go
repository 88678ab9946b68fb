// Package pipeline wires normalisation, recognition, field extraction and
// risk scoring into the entry points used by callers: Extract for an
// uploaded slip and Score for a record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/wudi/slipcheck/config"
	"github.com/wudi/slipcheck/fields"
	"github.com/wudi/slipcheck/imaging"
	"github.com/wudi/slipcheck/observability"
	"github.com/wudi/slipcheck/ocr"
	"github.com/wudi/slipcheck/ocr/tesseract"
	"github.com/wudi/slipcheck/risk"
)

// Pipeline is safe for concurrent use. Models are loaded lazily on the first
// Score and shared afterwards.
type Pipeline struct {
	normalizer *imaging.Normalizer
	recognizer *ocr.Recognizer
	extractor  *fields.Extractor
	registry   *risk.Registry
	scorer     *risk.Scorer

	logger observability.Logger
	tracer observability.Tracer
}

// Result is what a caller persists for one slip.
type Result struct {
	Record    fields.Record `json:"record"`
	RiskScore float64       `json:"risk_score"`
}

// Amount is the record's amount as a number, nil when no amount was found.
// A malformed amount is 0.
func (r Result) Amount() *float64 {
	if r.Record.Amount == nil {
		return nil
	}
	v := risk.ParseAmount(r.Record.Amount)
	return &v
}

// New builds a pipeline from cfg. Unset config values take their defaults.
func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	cfg.ApplyDefaults()
	if verrs := cfg.Validate(); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, verr := range verrs {
			errs[i] = verr
		}
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	o := options{
		logger: observability.NopLogger{},
		tracer: observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	engine := o.engine
	if engine == nil {
		engine = newEngine(cfg)
	}
	raster := o.raster
	if !o.rasterSet {
		raster = imaging.NewPoppler(cfg.Imaging.Rasterizer, cfg.Imaging.DPI)
	}
	loader := o.loader
	if !o.loaderSet {
		loader = &risk.ONNXLoader{
			LibraryPath:   cfg.Models.ONNXLibrary,
			DensityOutput: cfg.Models.DensityOutput,
		}
	}

	registry := risk.NewRegistry(risk.Paths{
		Density:        cfg.DensityPath(),
		Reconstruction: cfg.ReconstructionPath(),
	}, loader, o.logger)

	p := &Pipeline{
		normalizer: imaging.New(imaging.Options{
			Scale:          cfg.Imaging.Scale,
			BlurKernel:     cfg.Imaging.BlurKernel,
			ThresholdBlock: cfg.Imaging.ThresholdBlock,
			ThresholdC:     *cfg.Imaging.ThresholdC,
		}, raster),
		recognizer: ocr.NewRecognizer(engine, ocr.Settings{
			Languages:   cfg.OCR.Languages,
			PageSegMode: *cfg.OCR.PageSegMode,
			EngineMode:  *cfg.OCR.EngineMode,
			DPI:         cfg.Imaging.DPI,
		}),
		extractor: fields.NewExtractor(),
		registry:  registry,
		scorer:    risk.NewScorer(registry, o.logger),
		logger:    o.logger,
		tracer:    o.tracer,
	}
	p.logger.Debug("pipeline ready",
		observability.String("engine", engine.Name()),
		observability.String("models", cfg.Models.Dir),
	)
	return p, nil
}

func newEngine(cfg config.Config) ocr.Engine {
	if cfg.OCR.Engine == config.EngineCLI {
		return tesseract.NewCLIEngine(cfg.OCR.Binary, cfg.OCR.TessdataPrefix)
	}
	return tesseract.NewEngine(cfg.OCR.TessdataPrefix)
}

// Extract runs OCR over an uploaded image or PDF and extracts the slip
// fields. Unreadable input yields an empty record and no error; a missing
// or failing OCR or rasterisation tool is a dependency error.
func (p *Pipeline) Extract(ctx context.Context, data []byte) (fields.Record, error) {
	id := uuid.NewString()
	return p.extract(ctx, id, p.requestLogger(id), data)
}

// ExtractFile is Extract over the contents of path.
func (p *Pipeline) ExtractFile(ctx context.Context, path string) (fields.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fields.Record{}, fmt.Errorf("read %s: %w", path, err)
	}
	id := uuid.NewString()
	logger := p.requestLogger(id).With(observability.String("path", path))
	return p.extract(ctx, id, logger, data)
}

// Score returns the risk score of rec in [0,1]. It never fails.
func (p *Pipeline) Score(ctx context.Context, rec fields.Record) float64 {
	return p.score(ctx, p.requestLogger(uuid.NewString()), rec)
}

// Process extracts and then scores one slip.
func (p *Pipeline) Process(ctx context.Context, data []byte) (Result, error) {
	id := uuid.NewString()
	logger := p.requestLogger(id)
	rec, err := p.extract(ctx, id, logger, data)
	if err != nil {
		return Result{}, err
	}
	return Result{Record: rec, RiskScore: p.score(ctx, logger, rec)}, nil
}

// Close releases the loaded models.
func (p *Pipeline) Close() error {
	return p.registry.Close()
}

func (p *Pipeline) requestLogger(id string) observability.Logger {
	return p.logger.With(observability.String("request_id", id))
}

func (p *Pipeline) extract(ctx context.Context, id string, logger observability.Logger, data []byte) (fields.Record, error) {
	start := time.Now()

	sctx, span := p.tracer.StartSpan(ctx, observability.SpanNormalize)
	span.SetTag("bytes", len(data))
	img, err := p.normalizer.Normalize(sctx, data)
	finish(span, err)
	if err != nil {
		if errors.Is(err, imaging.ErrUnreadableImage) {
			logger.Warn("unreadable slip image", observability.Error("cause", err))
			return fields.Record{}, nil
		}
		logger.Error("normalize failed", observability.Error("error", err))
		return fields.Record{}, err
	}

	sctx, span = p.tracer.StartSpan(ctx, observability.SpanRecognize)
	res, err := p.recognizer.Recognize(sctx, id, img)
	finish(span, err)
	if err != nil {
		logger.Error("recognize failed", observability.Error("error", err))
		return fields.Record{}, err
	}

	if res.Empty() {
		logger.Info("no text recognised")
	}

	_, span = p.tracer.StartSpan(ctx, observability.SpanExtract)
	rec := p.extractor.Extract(res.PlainText)
	found := len(rec.Found())
	span.SetTag("fields", found)
	span.Finish()

	logger.Info("slip extracted",
		observability.Int("fields", found),
		observability.Float64("confidence", res.Confidence),
		observability.Duration("elapsed", time.Since(start)),
	)
	return rec, nil
}

func (p *Pipeline) score(ctx context.Context, logger observability.Logger, rec fields.Record) float64 {
	sctx, span := p.tracer.StartSpan(ctx, observability.SpanScore)
	defer span.Finish()
	s := p.scorer.Score(sctx, rec)
	span.SetTag("risk", s)
	logger.Info("slip scored", observability.Float64("risk", s))
	return s
}

func finish(span observability.Span, err error) {
	if err != nil {
		span.SetError(err)
	}
	span.Finish()
}
