package engine

import (
	"math"

	"persona-card-service/internal/domain"
)

// Aggregator folds a target's records into an Aggregate.
type Aggregator struct {
	tuning Tuning
	labels QuadrantLabels
}

// NewAggregator returns an aggregator; zero tuning or label fields take defaults.
func NewAggregator(t Tuning, l QuadrantLabels) *Aggregator {
	return &Aggregator{tuning: t.Merge(), labels: l.Merge()}
}

// Aggregate recomputes the full view over records. Callers pass only the
// records of one target.
func (a *Aggregator) Aggregate(records []domain.AnswerRecord) domain.Aggregate {
	if len(records) == 0 {
		return a.neutral()
	}

	points := a.Points(records)
	effort := a.effortWeight
	withConfidence := func(axis string) func(domain.AnswerRecord) float64 {
		return func(r domain.AnswerRecord) float64 {
			c, _ := r.Confidence.Get(axis)
			return effort(r) * float64(c) / 100
		}
	}

	var agg domain.Aggregate
	for _, axis := range domain.CoreAxes {
		axis := axis
		agg.Axes.Set(axis, a.weightedMean(records, func(r domain.AnswerRecord) int {
			v, _ := r.Axes.Get(axis)
			return v
		}, withConfidence(axis)))
	}
	agg.Meta.Calibration = a.weightedMean(records, func(r domain.AnswerRecord) int {
		return r.Meta.Calibration
	}, withConfidence(domain.AxisCalibration))
	agg.Meta.Frivolity = a.weightedMean(records, func(r domain.AnswerRecord) int {
		return r.Meta.Frivolity
	}, effort)

	agg.Confidence = a.confidence(records, points.Total)
	agg.Quadrant = a.Quadrant(agg.Axes)
	agg.Points = points
	agg.Unlocked = points.Now >= a.tuning.PointsCap
	return agg
}

// Points sums effort across records; Now is capped, Total is lifetime effort.
func (a *Aggregator) Points(records []domain.AnswerRecord) domain.Points {
	total := 0
	for _, r := range records {
		total += clampInt(r.Effort.PointsAwarded, 0, a.tuning.MaxEffort)
	}
	now := total
	if now > a.tuning.PointsCap {
		now = a.tuning.PointsCap
	}
	return domain.Points{Now: now, Total: total}
}

// Quadrant places axes on the plane. x > 0 is practicality-leaning, y > 0 is
// wisdom-leaning; zero resolves to the positive pole.
func (a *Aggregator) Quadrant(axes domain.Axes) domain.Quadrant {
	x := axes.Practicality - axes.Empathy
	y := axes.Wisdom - axes.Knowledge

	qx := a.labels.NegativeX
	if x >= 0 {
		qx = a.labels.PositiveX
	}
	qy := a.labels.NegativeY
	if y >= 0 {
		qy = a.labels.PositiveY
	}
	label := qy + a.labels.Separator + qx
	if a.labels.XFirst {
		label = qx + a.labels.Separator + qy
	}
	return domain.Quadrant{X: x, Y: y, Label: label}
}

func (a *Aggregator) neutral() domain.Aggregate {
	return domain.Aggregate{
		Axes:     domain.Axes{Practicality: 50, Empathy: 50, Knowledge: 50, Wisdom: 50},
		Meta:     domain.Meta{Calibration: 50, Frivolity: 0},
		Quadrant: domain.Quadrant{X: 0, Y: 0, Label: a.labels.Empty},
	}
}

func (a *Aggregator) effortWeight(r domain.AnswerRecord) float64 {
	return float64(clampInt(r.Effort.PointsAwarded, 0, a.tuning.MaxEffort)) / float64(a.tuning.MaxEffort)
}

// weightedMean is shared by the axes, calibration and frivolity so the three
// only differ in their weight function.
func (a *Aggregator) weightedMean(records []domain.AnswerRecord, value func(domain.AnswerRecord) int, weight func(domain.AnswerRecord) float64) int {
	var sum, wsum float64
	for _, r := range records {
		w := weight(r)
		sum += float64(value(r)) * w
		wsum += w
	}
	return clampInt(int(math.Round(sum/math.Max(a.tuning.Epsilon, wsum))), 0, 100)
}

// confidence averages stated confidence and scales it by how much effort
// backs the target.
func (a *Aggregator) confidence(records []domain.AnswerRecord, totalPoints int) domain.Confidence {
	factor := float64(totalPoints) / float64(a.tuning.PointsCap)
	factor = math.Max(a.tuning.ConfidenceFloor, math.Min(1.0, factor))

	var out domain.Confidence
	n := float64(len(records))
	for _, axis := range domain.ConfidenceAxes {
		var sum float64
		for _, r := range records {
			c, _ := r.Confidence.Get(axis)
			sum += float64(c)
		}
		out.Set(axis, clampInt(int(math.Round(sum/n*factor)), 0, 100))
	}
	return out
}
