package engine_test

import (
	"testing"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
)

func TestAggregateEmptyIsNeutral(t *testing.T) {
	agg := engine.New(engine.Options{}).Aggregate(nil)

	want := domain.Aggregate{
		Axes:     domain.Axes{Practicality: 50, Empathy: 50, Knowledge: 50, Wisdom: 50},
		Meta:     domain.Meta{Calibration: 50, Frivolity: 0},
		Quadrant: domain.Quadrant{X: 0, Y: 0, Label: "—"},
	}
	if agg != want {
		t.Fatalf("expected neutral aggregate, got %+v", agg)
	}
}

func TestAggregateSingleRecord(t *testing.T) {
	e := engine.New(engine.Options{})
	r := mustValidate(t, e, decode(t, currentJSON))

	agg := e.Aggregate([]domain.AnswerRecord{r})
	if agg.Points.Total != 40 || agg.Points.Now != 40 || agg.Unlocked {
		t.Fatalf("unexpected points %+v unlocked=%v", agg.Points, agg.Unlocked)
	}
	if agg.Axes != (domain.Axes{Practicality: 70, Empathy: 70, Knowledge: 70, Wisdom: 70}) {
		t.Fatalf("unexpected axes %+v", agg.Axes)
	}
	if agg.Meta.Calibration != 75 || agg.Meta.Frivolity != 5 {
		t.Fatalf("unexpected meta %+v", agg.Meta)
	}
	// 80 * clamp(40/100, 0.4, 1.0)
	if agg.Confidence.Wisdom != 32 || agg.Confidence.Calibration != 32 {
		t.Fatalf("unexpected confidence %+v", agg.Confidence)
	}
	if agg.Quadrant != (domain.Quadrant{X: 0, Y: 0, Label: "WP"}) {
		t.Fatalf("expected tie to resolve to positive poles, got %+v", agg.Quadrant)
	}
}

func TestAggregatePointsCap(t *testing.T) {
	e := engine.New(engine.Options{})
	records := []domain.AnswerRecord{rec("Q01", 60, 50, 50), rec("Q02", 60, 50, 50), rec("Q03", 60, 50, 30)}

	agg := e.Aggregate(records)
	if agg.Points.Total != 130 || agg.Points.Now != 100 || !agg.Unlocked {
		t.Fatalf("expected total 130 now 100 unlocked, got %+v %v", agg.Points, agg.Unlocked)
	}
	// factor is capped at 1.0
	if agg.Confidence.Empathy != 50 {
		t.Fatalf("expected unscaled confidence 50, got %d", agg.Confidence.Empathy)
	}
}

func TestAggregateWeightsByEffortAndConfidence(t *testing.T) {
	e := engine.New(engine.Options{})
	strong := rec("Q01", 90, 100, 50)
	weak := rec("Q02", 10, 100, 10)
	strong.Meta.Frivolity = 0
	weak.Meta.Frivolity = 60

	agg := e.Aggregate([]domain.AnswerRecord{strong, weak})
	// (90*1.0 + 10*0.2) / 1.2 = 76.67
	if agg.Axes.Wisdom != 77 {
		t.Fatalf("expected effort-weighted 77, got %d", agg.Axes.Wisdom)
	}
	// (0*1.0 + 60*0.2) / 1.2 = 10
	if agg.Meta.Frivolity != 10 {
		t.Fatalf("expected frivolity 10, got %d", agg.Meta.Frivolity)
	}

	strong.Confidence.Knowledge = 0
	agg = e.Aggregate([]domain.AnswerRecord{strong, weak})
	if agg.Axes.Knowledge != 10 {
		t.Fatalf("expected zero-confidence record to drop out, got %d", agg.Axes.Knowledge)
	}
}

func TestAggregateZeroWeightsStayDefined(t *testing.T) {
	e := engine.New(engine.Options{})
	agg := e.Aggregate([]domain.AnswerRecord{rec("Q01", 80, 0, 0)})
	if agg.Axes.Wisdom != 0 || agg.Meta.Frivolity != 0 {
		t.Fatalf("expected epsilon fallback to 0, got %+v %+v", agg.Axes, agg.Meta)
	}
	if agg.Points != (domain.Points{}) {
		t.Fatalf("expected zero points, got %+v", agg.Points)
	}
}

func TestAggregateBounds(t *testing.T) {
	e := engine.New(engine.Options{})
	var records []domain.AnswerRecord
	for i := 0; i < 12; i++ {
		r := rec("Q", (i*37)%101, (i*53)%101, (i*17)%51)
		r.Axes.Practicality = 100 - r.Axes.Practicality
		r.Meta.Frivolity = (i * 29) % 101
		records = append(records, r)

		agg := e.Aggregate(records)
		for _, axis := range domain.CoreAxes {
			v, _ := agg.Axes.Get(axis)
			assertRange(t, axis, v, 0, 100)
		}
		for _, axis := range domain.ConfidenceAxes {
			v, _ := agg.Confidence.Get(axis)
			assertRange(t, "confidence."+axis, v, 0, 100)
		}
		assertRange(t, "calibration", agg.Meta.Calibration, 0, 100)
		assertRange(t, "frivolity", agg.Meta.Frivolity, 0, 100)
		assertRange(t, "x", agg.Quadrant.X, -100, 100)
		assertRange(t, "y", agg.Quadrant.Y, -100, 100)
		assertRange(t, "points.now", agg.Points.Now, 0, 100)
	}
}

func TestQuadrantLabelsAreConfigurable(t *testing.T) {
	e := engine.New(engine.Options{Labels: engine.QuadrantLabels{
		PositiveX: "Practical", NegativeX: "Empathic",
		PositiveY: "Wise", NegativeY: "Knowing",
		XFirst: true, Separator: "-",
	}})
	r := rec("Q01", 50, 80, 20)
	r.Axes.Empathy = 90
	r.Axes.Knowledge = 90

	q := e.Aggregate([]domain.AnswerRecord{r}).Quadrant
	if q.X != -40 || q.Y != -40 || q.Label != "Empathic-Knowing" {
		t.Fatalf("unexpected quadrant %+v", q)
	}
}

func TestNearestPreset(t *testing.T) {
	presets := []domain.Preset{
		{ID: "sage", X: -20, Y: 40, Calibration: 80},
		{ID: "operator", X: 40, Y: -10, Calibration: 50},
	}
	agg := domain.Aggregate{Quadrant: domain.Quadrant{X: 30, Y: -5}, Meta: domain.Meta{Calibration: 55}}
	if p := engine.NearestPreset(presets, agg); p == nil || p.ID != "operator" {
		t.Fatalf("expected operator, got %+v", p)
	}
	if engine.NearestPreset(nil, agg) != nil {
		t.Fatalf("expected nil for empty preset list")
	}
}

func assertRange(t *testing.T, name string, v, lo, hi int) {
	t.Helper()
	if v < lo || v > hi {
		t.Fatalf("%s out of range: %d not in [%d,%d]", name, v, lo, hi)
	}
}
