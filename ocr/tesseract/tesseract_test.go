package tesseract

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os/exec"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/slipcheck/dependency"
	"github.com/wudi/slipcheck/ocr"
)

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func helloImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 50),
	}
	d.DrawString("Hello PDF")
	return img
}

func TestEnginesRecognize(t *testing.T) {
	ensureTesseractAvailable(t)

	engines := map[string]ocr.Engine{
		"library": NewEngine(""),
		"cli":     NewCLIEngine("", ""),
	}
	for name, engine := range engines {
		t.Run(name, func(t *testing.T) {
			in, err := ocr.InputFromImage("hello", helloImage(), ocr.WithLanguages("eng"), ocr.WithDPI(300), ocr.WithTesseractPSM(6))
			if err != nil {
				t.Fatalf("InputFromImage() error = %v", err)
			}
			res, err := engine.Recognize(context.Background(), in)
			if err != nil {
				t.Fatalf("Recognize() error = %v", err)
			}
			got := strings.ToLower(res.PlainText)
			if !strings.Contains(got, "hello") || !strings.Contains(got, "pdf") {
				t.Fatalf("unexpected OCR output: %q", res.PlainText)
			}
			if res.InputID != "hello" {
				t.Fatalf("unexpected input id: %s", res.InputID)
			}
			if res.Language != "eng" {
				t.Fatalf("unexpected language: %s", res.Language)
			}
		})
	}
}

func TestCLIEngineMissingBinary(t *testing.T) {
	engine := NewCLIEngine("slipcheck-no-such-tesseract", "")
	_, err := engine.Recognize(context.Background(), ocr.Input{Image: []byte{0}})
	if err == nil {
		t.Fatalf("expected error for missing binary")
	}
	tool, ok := dependency.Tool(err)
	if !ok || tool != "slipcheck-no-such-tesseract" {
		t.Fatalf("expected dependency error for binary, got %v", err)
	}
}

func TestCLIArgs(t *testing.T) {
	in := ocr.Input{
		Languages: []string{"tha", "eng"},
		DPI:       300,
		Metadata: map[string]string{
			ocr.VarEngineMode:           "3",
			ocr.VarPageSegMode:          "6",
			"tessedit_char_whitelist":   "0123456789",
			"preserve_interword_spaces": "1",
		},
	}
	got := cliArgs(in, "/usr/share/tessdata")
	want := []string{
		"stdin", "stdout",
		"--tessdata-dir", "/usr/share/tessdata",
		"-l", "tha+eng",
		"--dpi", "300",
		"--oem", "3",
		"--psm", "6",
		"-c", "preserve_interword_spaces=1",
		"-c", "tessedit_char_whitelist=0123456789",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cliArgs() = %q, want %q", got, want)
	}
}

func TestCLIArgsMinimal(t *testing.T) {
	got := cliArgs(ocr.Input{}, "")
	if !reflect.DeepEqual(got, []string{"stdin", "stdout"}) {
		t.Fatalf("unexpected args: %q", got)
	}
}
