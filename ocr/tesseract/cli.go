package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/slipcheck/dependency"
	"github.com/wudi/slipcheck/ocr"
)

// CLIEngine implements ocr.Engine by piping the image through the tesseract
// binary. Unlike the library engine it honours the requested engine mode.
type CLIEngine struct {
	binary         string
	tessdataPrefix string
}

// NewCLIEngine runs binary (default "tesseract").
func NewCLIEngine(binary, tessdataPrefix string) *CLIEngine {
	if binary == "" {
		binary = "tesseract"
	}
	return &CLIEngine{binary: binary, tessdataPrefix: tessdataPrefix}
}

func (e *CLIEngine) Name() string { return e.binary }

// Recognize runs `tesseract stdin stdout ...` on the input image.
func (e *CLIEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	bin, err := dependency.Lookup(e.binary)
	if err != nil {
		return ocr.Result{}, err
	}

	cmd := exec.CommandContext(ctx, bin, cliArgs(in, e.tessdataPrefix)...)
	cmd.Stdin = bytes.NewReader(in.Image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ocr.Result{}, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return ocr.Result{}, dependency.Missing(e.binary, err)
		}
		return ocr.Result{}, fmt.Errorf("%s: %w: %s", e.binary, err, strings.TrimSpace(stderr.String()))
	}

	return ocr.Result{
		InputID:   in.ID,
		PlainText: strings.TrimSpace(stdout.String()),
		Language:  firstLanguage(in.Languages),
	}, nil
}

func cliArgs(in ocr.Input, tessdataPrefix string) []string {
	args := []string{"stdin", "stdout"}
	if tessdataPrefix != "" {
		args = append(args, "--tessdata-dir", tessdataPrefix)
	}
	if len(in.Languages) > 0 {
		args = append(args, "-l", strings.Join(in.Languages, "+"))
	}
	if in.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(in.DPI))
	}
	if v, ok := in.Var(ocr.VarEngineMode); ok {
		args = append(args, "--oem", v)
	}
	if v, ok := in.Var(ocr.VarPageSegMode); ok {
		args = append(args, "--psm", v)
	}

	keys := make([]string, 0, len(in.Metadata))
	for k := range in.Metadata {
		if k == ocr.VarEngineMode || k == ocr.VarPageSegMode {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-c", k+"="+in.Metadata[k])
	}
	return args
}
