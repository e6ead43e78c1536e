package memory

import (
	"errors"

	"tileworld/internal/domain/grid"
)

var ErrInvalidParams = errors.New("invalid memory params")

const DefaultDecayStep = 1.0

// Params is the immutable per-run memory configuration. The spiral search
// order is computed once here and shared read-only by every memory built
// from the same Params. Its radius covers the whole map from any origin.
type Params struct {
	Width       int
	Height      int
	SensorRange int
	Lifetime    int
	DecayStep   float64

	spiral []grid.Point
}

func NewParams(width, height, sensorRange, lifetime int) (Params, error) {
	if width <= 0 || height <= 0 || sensorRange < 0 || lifetime <= 0 {
		return Params{}, ErrInvalidParams
	}
	radius := max(width, height)
	return Params{
		Width:       width,
		Height:      height,
		SensorRange: sensorRange,
		Lifetime:    lifetime,
		DecayStep:   DefaultDecayStep,
		spiral:      grid.Spiral(radius),
	}, nil
}

func (p Params) Bounds() grid.Rect {
	return grid.NewRect(p.Width, p.Height)
}

func (p Params) Spiral() []grid.Point {
	return p.spiral
}
