package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlipOptions(t *testing.T) {
	in := Input{}
	for _, opt := range []InputOption{
		WithLanguages("tha", "eng"),
		WithDPI(300),
		WithTesseractPSM(6),
		WithTesseractOEM(3),
	} {
		opt(&in)
	}

	assert.Equal(t, []string{"tha", "eng"}, in.Languages)
	assert.Equal(t, 300, in.DPI)
	psm, ok := in.Var(VarPageSegMode)
	assert.True(t, ok)
	assert.Equal(t, "6", psm)
	oem, ok := in.Var(VarEngineMode)
	assert.True(t, ok)
	assert.Equal(t, "3", oem)
}

func TestOptionsCopyCallerData(t *testing.T) {
	langs := []string{"tha"}
	meta := map[string]string{"preserve_interword_spaces": "1"}
	in := Input{}
	WithLanguages(langs...)(&in)
	WithMetadata(meta)(&in)

	langs[0] = "eng"
	meta["preserve_interword_spaces"] = "0"
	assert.Equal(t, []string{"tha"}, in.Languages)
	assert.Equal(t, "1", in.Metadata["preserve_interword_spaces"])

	WithMetadata(nil)(&in)
	_, ok := in.Var(VarPageSegMode)
	assert.False(t, ok)
	assert.Nil(t, in.Metadata)
}

func TestResultEmpty(t *testing.T) {
	assert.True(t, Result{}.Empty())
	assert.True(t, Result{PlainText: " \n\t"}.Empty())
	assert.False(t, Result{PlainText: "จำนวนเงิน"}.Empty())
}
