package engine

import (
	"math"

	"persona-card-service/internal/domain"
)

// Distance weights: the plane dominates, then calibration, then frivolity.
const (
	presetCalibrationWeight = 0.35
	presetFrivolityWeight   = 0.20
)

// NearestPreset returns the archetype closest to agg, or nil for an empty list.
func NearestPreset(presets []domain.Preset, agg domain.Aggregate) *domain.Preset {
	var (
		best  *domain.Preset
		bestD = math.Inf(1)
	)
	for i := range presets {
		p := presets[i]
		dx := p.X - float64(agg.Quadrant.X)
		dy := p.Y - float64(agg.Quadrant.Y)
		dc := (p.Calibration - float64(agg.Meta.Calibration)) * presetCalibrationWeight
		dp := (p.Frivolity - float64(agg.Meta.Frivolity)) * presetFrivolityWeight
		d := dx*dx + dy*dy + dc*dc + dp*dp
		if d < bestD {
			bestD = d
			best = &presets[i]
		}
	}
	return best
}
