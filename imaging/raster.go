package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wudi/slipcheck/dependency"
)

// Poppler rasterises PDFs with poppler's pdftoppm binary.
type Poppler struct {
	Binary string
	DPI    int
}

// NewPoppler returns a rasterizer running binary at dpi. Empty values
// default to "pdftoppm" at 300 DPI.
func NewPoppler(binary string, dpi int) *Poppler {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Poppler{Binary: binary, DPI: dpi}
}

// FirstPage renders page 1 of pdf to PNG. A missing binary is a dependency
// error; a binary that rejects the document means the input is unreadable.
func (p *Poppler) FirstPage(ctx context.Context, pdf []byte) ([]byte, error) {
	bin, err := dependency.Lookup(p.Binary)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "slipcheck-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "slip.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	prefix := filepath.Join(dir, "page")

	cmd := exec.CommandContext(ctx, bin,
		"-r", strconv.Itoa(p.DPI),
		"-f", "1", "-l", "1",
		"-png", "-singlefile",
		in, prefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, dependency.Missing(p.Binary, err)
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrUnreadableImage, p.Binary, err, strings.TrimSpace(stderr.String()))
	}

	out, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("%w: %s produced no page: %v", ErrUnreadableImage, p.Binary, err)
	}
	return out, nil
}
