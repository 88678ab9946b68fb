package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/wudi/slipcheck/dependency"
)

// Settings is the fixed recognition configuration for slips.
type Settings struct {
	Languages   []string
	PageSegMode int
	EngineMode  int
	DPI         int
}

// SlipSettings mixes Thai and English dictionaries, lets Tesseract pick
// legacy+LSTM (OEM 3) and treats the slip as one uniform block (PSM 6).
func SlipSettings() Settings {
	return Settings{
		Languages:   []string{"tha", "eng"},
		PageSegMode: 6,
		EngineMode:  3,
		DPI:         300,
	}
}

// Recognizer runs an Engine with fixed Settings.
type Recognizer struct {
	engine   Engine
	settings Settings
}

// NewRecognizer binds engine to settings.
func NewRecognizer(engine Engine, settings Settings) *Recognizer {
	return &Recognizer{engine: engine, settings: settings}
}

// Engine returns the underlying engine.
func (r *Recognizer) Engine() Engine { return r.engine }

// Recognize returns the text found in img. An empty string is a valid result
// meaning nothing legible; any engine failure is a dependency error naming
// the engine.
func (r *Recognizer) Recognize(ctx context.Context, id string, img image.Image) (Result, error) {
	if r.engine == nil {
		return Result{}, dependency.Missing("ocr engine", errors.New("no engine configured"))
	}
	in, err := InputFromImage(id, img,
		WithLanguages(r.settings.Languages...),
		WithDPI(r.settings.DPI),
		WithTesseractPSM(r.settings.PageSegMode),
		WithTesseractOEM(r.settings.EngineMode),
	)
	if err != nil {
		return Result{}, fmt.Errorf("build ocr input: %w", err)
	}
	res, err := r.engine.Recognize(ctx, in)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if errors.Is(err, dependency.ErrMissing) {
			return Result{}, err
		}
		return Result{}, dependency.Missing(r.engine.Name(), err)
	}
	return res, nil
}
