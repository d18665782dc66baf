// Package numeric clamps arbitrary float input into the fixed-point domain
// of the storage layer's NUMERIC(precision, scale) columns. It fails open:
// a bad value becomes a safe default rather than aborting an assessment run.
package numeric

import (
	"math"
	"strconv"

	"go.uber.org/zap"
)

// Options controls the fixed-point domain a value is sanitized into.
type Options struct {
	Precision     int // total significant digits, default 18
	Scale         int // digits after the decimal point, default 8
	AllowNegative bool
	DefaultValue  float64
	Logger        *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Precision <= 0 {
		o.Precision = 18
	}
	if o.Scale < 0 || o.Scale >= o.Precision {
		o.Scale = 8
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// MaxAbs returns the largest magnitude representable by the configured
// NUMERIC(precision, scale) column: 10^(precision-scale) - 10^-scale.
func (o Options) MaxAbs() float64 {
	o = o.withDefaults()
	return math.Pow(10, float64(o.Precision-o.Scale)) - math.Pow(10, -float64(o.Scale))
}

// Sanitize clamps and rounds value into the fixed-point domain described by
// opts. Non-finite input yields opts.DefaultValue. Adjustments are logged,
// never surfaced as errors.
func Sanitize(value float64, opts Options) float64 {
	opts = opts.withDefaults()

	if math.IsNaN(value) || math.IsInf(value, 0) {
		opts.Logger.Warn("sanitize: non-finite value replaced with default",
			zap.Float64("default", opts.DefaultValue))
		return opts.DefaultValue
	}

	maxAbs := opts.MaxAbs()
	minAllowed := -maxAbs
	if !opts.AllowNegative {
		minAllowed = 0
	}

	clamped := value
	if clamped > maxAbs {
		clamped = maxAbs
	} else if clamped < minAllowed {
		clamped = minAllowed
	}

	factor := math.Pow(10, float64(opts.Scale))
	rounded := math.Round(clamped*factor) / factor

	if rounded != value {
		opts.Logger.Warn("sanitize: value adjusted to fit fixed-point domain",
			zap.Float64("original", value),
			zap.Float64("sanitized", rounded),
			zap.Int("precision", opts.Precision),
			zap.Int("scale", opts.Scale))
	}

	return rounded
}

// SanitizeString parses a decimal string and sanitizes the result. An
// unparsable string yields opts.DefaultValue.
func SanitizeString(value string, opts Options) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		opts = opts.withDefaults()
		opts.Logger.Warn("sanitize: unparsable numeric string replaced with default",
			zap.String("value", value),
			zap.Float64("default", opts.DefaultValue))
		return opts.DefaultValue
	}
	return Sanitize(parsed, opts)
}
