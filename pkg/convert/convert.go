package convert

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultReferenceScale is the ADC reference voltage in centivolts (3.30 V).
	DefaultReferenceScale = 330
	// DefaultFullScaleCode is the code count of a 12 bit converter.
	DefaultFullScaleCode = 1 << 12
	// DefaultRatio maps sensed voltage to power.
	DefaultRatio = 6.2

	ratioScale = 1000
	// float error allowed when checking that a ratio is whole thousandths
	ratioEpsilon = 1e-6
)

var (
	ErrFullScale = errors.New("full scale code must be positive")
	ErrRatio     = errors.New("ratio must be a whole number of thousandths")
)

// Linear maps a raw sensor code to power with a fixed transfer function.
// The ratio is kept in thousandths so that the result does not depend on
// float rounding. New rejects ratios with finer precision.
type Linear struct {
	referenceScale int64
	fullScaleCode  int64
	ratioMilli     int64
}

func New(referenceScale, fullScaleCode int64, ratio float64) (Linear, error) {
	if fullScaleCode <= 0 {
		return Linear{}, fmt.Errorf("%w: got %d", ErrFullScale, fullScaleCode)
	}
	scaled := ratio * ratioScale
	milli := math.Round(scaled)
	if math.IsNaN(scaled) || math.IsInf(scaled, 0) || math.Abs(scaled-milli) > ratioEpsilon {
		return Linear{}, fmt.Errorf("%w: got %v", ErrRatio, ratio)
	}
	return Linear{
		referenceScale: referenceScale,
		fullScaleCode:  fullScaleCode,
		ratioMilli:     int64(milli),
	}, nil
}

// Default returns the converter for the stock 3.3V 12 bit channel.
func Default() Linear {
	l, _ := New(DefaultReferenceScale, DefaultFullScaleCode, DefaultRatio)
	return l
}

// Convert does not validate raw. Codes at or above the full scale code
// give proportionally larger values.
func (l Linear) Convert(raw uint32) int {
	voltage := int64(raw) * l.referenceScale / l.fullScaleCode
	return int(voltage * l.ratioMilli / ratioScale)
}

// Voltage returns the intermediate voltage for raw in reference scale units.
func (l Linear) Voltage(raw uint32) int {
	return int(int64(raw) * l.referenceScale / l.fullScaleCode)
}

func (l Linear) String() string {
	return fmt.Sprintf("raw*%d/%d*%.3f", l.referenceScale, l.fullScaleCode, float64(l.ratioMilli)/ratioScale)
}
