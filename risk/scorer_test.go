package risk

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wudi/slipcheck/fields"
	"github.com/wudi/slipcheck/observability"
)

func TestScorerWithoutModels(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(Paths{
		Density:        filepath.Join(dir, "isolation_forest.onnx"),
		Reconstruction: filepath.Join(dir, "autoencoder.onnx"),
	}, newCountingLoader(), nil)
	s := NewScorer(reg, nil)
	ctx := context.Background()

	assert.Equal(t, 0.5, s.Score(ctx, fields.Extract("จำนวนเงิน: 1,000.00\nชื่อผู้โอน: Somchai")))
	assert.Equal(t, 0.5, s.Score(ctx, fields.Extract("")))
	assert.Equal(t, 0.5, s.Score(ctx, fields.Record{}))
}

func TestScorerFeedsVectorToModels(t *testing.T) {
	var seen []Vector
	density := &fakeDensity{decision: func(v Vector) (float64, error) {
		seen = append(seen, v)
		return 0, nil
	}}
	s := NewScorer(staticSource{density: density}, nil)

	amount, sender, receiver := "1,000.00", "Somchai", "Ann"
	rec := fields.Record{Amount: &amount, SenderName: &sender, ReceiverName: &receiver}
	s.Score(context.Background(), rec)

	assert.Equal(t, []Vector{{1000, 7, 3}}, seen)
}

func TestScorerWithBothModels(t *testing.T) {
	s := NewScorer(staticSource{
		density:        constantDensity(1),
		reconstruction: zeroReconstruction(),
	}, nil)
	// Both models see an all-zero vector as perfectly normal.
	assert.Equal(t, 0.0, s.Score(context.Background(), fields.Record{}))
}

func TestScorerLogsSubScores(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewStdLogger(log.New(&buf, "", 0), observability.LevelDebug)
	s := NewScorer(nil, logger)
	s.Score(context.Background(), fields.Record{})
	assert.Equal(t, "DEBUG scored record density=0.5 reconstruction=0.5 risk=0.5\n", buf.String())
}
