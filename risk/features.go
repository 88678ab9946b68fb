// Package risk turns an extracted slip record into a bounded anomaly score
// using up to two optional models: a density model (isolation forest) and a
// reconstruction model (autoencoder).
package risk

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/wudi/slipcheck/fields"
)

// Len is the number of features; the order below is the training order.
const Len = 3

const (
	FeatureAmount = iota
	FeatureSenderNameLen
	FeatureReceiverNameLen
)

// Vector is the model input: amount, sender name length, receiver name length.
type Vector [Len]float64

// Vectorize maps a record to its feature vector. Every record yields a
// fully populated vector.
func Vectorize(rec fields.Record) Vector {
	return Vector{
		FeatureAmount:          ParseAmount(rec.Amount),
		FeatureSenderNameLen:   float64(utf8.RuneCountInString(fields.Value(rec.SenderName))),
		FeatureReceiverNameLen: float64(utf8.RuneCountInString(fields.Value(rec.ReceiverName))),
	}
}

// ParseAmount converts a locale-formatted amount ("12,345.67") to a float.
// nil, empty, non-numeric or malformed input is 0.
func ParseAmount(raw *string) float64 {
	if raw == nil {
		return 0
	}
	clean := strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(*raw), ",", ""))
	if clean == "" {
		return 0
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Float32s converts the vector for float32 model inputs.
func (v Vector) Float32s() []float32 {
	out := make([]float32, Len)
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
