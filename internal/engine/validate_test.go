package engine_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
)

func TestValidateCurrentRecordIsUnchanged(t *testing.T) {
	e := engine.New(engine.Options{})
	input := decode(t, currentJSON)

	res := e.Validate(input)
	if !res.OK || len(res.Errors) != 0 {
		t.Fatalf("expected ok, got %+v", res.Errors)
	}
	got := toMap(t, res.Normalized.ScoredAnswer)
	if !reflect.DeepEqual(got, input) {
		t.Fatalf("normalized record differs from input:\n got %v\nwant %v", got, input)
	}
}

func TestValidateJSONMatchesValidate(t *testing.T) {
	e := engine.New(engine.Options{})
	fromJSON := e.ValidateJSON([]byte(currentJSON))
	fromMap := e.Validate(decode(t, currentJSON))
	if !fromJSON.OK || !reflect.DeepEqual(fromJSON.Normalized, fromMap.Normalized) {
		t.Fatalf("expected identical results, got %+v vs %+v", fromJSON.Normalized, fromMap.Normalized)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	e := engine.New(engine.Options{})
	input := decode(t, currentJSON)
	input["axes"].(map[string]any)["wisdom"] = "very wise"
	input["confidence"].(map[string]any)["empathy"] = nil
	delete(input["effort"].(map[string]any), "why")
	delete(input, "notes")

	res := e.Validate(input)
	if res.OK {
		t.Fatalf("expected failure")
	}
	want := []string{
		"axes.wisdom must be 0..100",
		"confidence.empathy must be 0..100",
		"effort.why must be a string",
		"notes missing.",
	}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("expected %v, got %v", want, res.Errors)
	}
	var verr *domain.ValidationError
	if !errors.As(res.Err(), &verr) || len(verr.Errors) != 4 {
		t.Fatalf("expected ValidationError with 4 entries, got %v", res.Err())
	}
	if res.Normalized != nil {
		t.Fatalf("expected no normalized record on failure")
	}
}

func TestValidateRoundsAndClamps(t *testing.T) {
	e := engine.New(engine.Options{})
	input := decode(t, currentJSON)
	input["axes"].(map[string]any)["practicality"] = 70.6
	input["axes"].(map[string]any)["empathy"] = 130.0
	input["meta"].(map[string]any)["frivolity"] = -4.0
	input["effort"].(map[string]any)["points_awarded"] = 77.0

	r := mustValidate(t, e, input)
	if r.Axes.Practicality != 71 || r.Axes.Empathy != 100 {
		t.Fatalf("expected 71/100, got %+v", r.Axes)
	}
	if r.Meta.Frivolity != 0 {
		t.Fatalf("expected frivolity clamped to 0, got %d", r.Meta.Frivolity)
	}
	if r.Effort.PointsAwarded != 50 {
		t.Fatalf("expected effort clamped to 50, got %d", r.Effort.PointsAwarded)
	}
}

func TestValidateClampsHugeFiniteNumbers(t *testing.T) {
	e := engine.New(engine.Options{})
	input := decode(t, currentJSON)
	input["axes"].(map[string]any)["wisdom"] = 1e20
	input["axes"].(map[string]any)["knowledge"] = -1e20
	input["confidence"].(map[string]any)["empathy"] = 1e19
	input["effort"].(map[string]any)["points_awarded"] = 1e20

	r := mustValidate(t, e, input)
	if r.Axes.Wisdom != 100 || r.Axes.Knowledge != 0 || r.Confidence.Empathy != 100 {
		t.Fatalf("expected 100/0/100, got %+v %+v", r.Axes, r.Confidence)
	}
	if r.Effort.PointsAwarded != 50 {
		t.Fatalf("expected effort clamped to 50, got %d", r.Effort.PointsAwarded)
	}
}

func TestMigrateV1HugeConfidenceCapsPoints(t *testing.T) {
	e := engine.New(engine.Options{})
	input := decode(t, v1JSON)
	input["confidence"] = map[string]any{
		"practicality": 1e300, "empathy": 1e300, "knowledge": 1e300, "wisdom": 1e300, "calibration": 1e300,
	}

	r := mustValidate(t, e, input)
	if r.Effort.PointsAwarded != 35 {
		t.Fatalf("expected migrated points capped at 35, got %d", r.Effort.PointsAwarded)
	}
}

func TestValidateStrictRangesRejectOutOfRange(t *testing.T) {
	e := engine.New(engine.Options{StrictRanges: true})
	input := decode(t, currentJSON)
	input["axes"].(map[string]any)["empathy"] = 130.0
	input["effort"].(map[string]any)["points_awarded"] = 51.0

	res := e.Validate(input)
	want := []string{"axes.empathy must be 0..100", "effort.points_awarded must be an int 0..50"}
	if res.OK || !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("expected %v, got ok=%v %v", want, res.OK, res.Errors)
	}
}

func TestValidateUnknownSchemaVersion(t *testing.T) {
	e := engine.New(engine.Options{})
	input := decode(t, currentJSON)
	input["schema_version"] = "persona.schema.v9"

	res := e.Validate(input)
	if res.OK || !res.UnknownVersion() {
		t.Fatalf("expected unknown version, got %+v", res)
	}
	if !errors.Is(res.Err(), domain.ErrUnknownSchemaVersion) {
		t.Fatalf("expected ErrUnknownSchemaVersion, got %v", res.Err())
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], engine.SchemaV1) {
		t.Fatalf("expected message listing accepted versions, got %v", res.Errors)
	}
}

func TestValidateRejectsNonObjectsAndBadJSON(t *testing.T) {
	e := engine.New(engine.Options{})
	if res := e.Validate([]any{1, 2}); res.OK || res.Errors[0] != "Not an object." {
		t.Fatalf("expected not-an-object, got %+v", res)
	}
	if res := e.ValidateJSON([]byte(`{"schema_version":`)); res.OK || !strings.HasPrefix(res.Errors[0], "invalid JSON") {
		t.Fatalf("expected invalid JSON, got %+v", res)
	}
	if res := e.ValidateJSON([]byte(currentJSON + ` garbage`)); res.OK || !strings.HasPrefix(res.Errors[0], "invalid JSON") {
		t.Fatalf("expected trailing data rejected, got %+v", res)
	}
	if res := e.ValidateJSON([]byte(currentJSON + "\n")); !res.OK {
		t.Fatalf("expected trailing whitespace accepted, got %v", res.Errors)
	}
}

const v1JSON = `{
  "schema_version": "persona.schema.v1",
  "qid": "Q02",
  "axes": {"practicality": 40, "empathy": 80, "knowledge": 55, "wisdom": 65},
  "meta": {"calibration": 60, "playfulness": 12},
  "confidence": {"practicality": 90, "empathy": 90, "knowledge": 90}
}`

func TestMigrateV1BackfillsDefaults(t *testing.T) {
	e := engine.New(engine.Options{})
	r := mustValidate(t, e, decode(t, v1JSON))

	if r.SchemaVersion != engine.CurrentSchema || r.QuestionID != "Q02" {
		t.Fatalf("unexpected header %q %q", r.SchemaVersion, r.QuestionID)
	}
	if r.Confidence.Wisdom != 60 || r.Confidence.Calibration != 60 || r.Confidence.Empathy != 90 {
		t.Fatalf("expected missing confidence to default to 60, got %+v", r.Confidence)
	}
	// avg(90,90,90,50,50) = 74 -> round(74/3) = 25
	if r.Effort.PointsAwarded != 25 {
		t.Fatalf("expected 25 approx points, got %d", r.Effort.PointsAwarded)
	}
	if r.Meta.Frivolity != 12 {
		t.Fatalf("expected frivolity inherited from playfulness, got %d", r.Meta.Frivolity)
	}
	if r.Signals.KeyQuotes == nil || r.RiskFlags.MissedPoint {
		t.Fatalf("expected backfilled display sections, got %+v %+v", r.Signals, r.RiskFlags)
	}
}

func TestMigrateV2PrefersFrivolity(t *testing.T) {
	e := engine.New(engine.Options{})
	input := decode(t, currentJSON)
	input["schema_version"] = engine.SchemaV2
	input["qid"] = input["question_id"]
	delete(input, "question_id")
	input["meta"].(map[string]any)["playfulness"] = 99.0

	r := mustValidate(t, e, input)
	if r.Meta.Frivolity != 5 {
		t.Fatalf("expected explicit frivolity to win, got %d", r.Meta.Frivolity)
	}

	delete(input["meta"].(map[string]any), "frivolity")
	delete(input["meta"].(map[string]any), "playfulness")
	r = mustValidate(t, e, input)
	if r.Meta.Frivolity != 0 {
		t.Fatalf("expected frivolity default 0, got %d", r.Meta.Frivolity)
	}
}

func TestMigrationDirectEqualsStepwise(t *testing.T) {
	e := engine.New(engine.Options{})
	reg := e.Registry()
	v1 := decode(t, v1JSON)

	direct := mustValidate(t, e, v1)

	v2, err := reg.Step(v1)
	if err != nil {
		t.Fatalf("step v1: %v", err)
	}
	if v2["schema_version"] != engine.SchemaV2 {
		t.Fatalf("expected v2 after one hop, got %v", v2["schema_version"])
	}
	viaV2 := mustValidate(t, e, v2)

	v3, err := reg.Step(v2)
	if err != nil {
		t.Fatalf("step v2: %v", err)
	}
	viaV3 := mustValidate(t, e, v3)

	if !reflect.DeepEqual(direct, viaV2) || !reflect.DeepEqual(direct, viaV3) {
		t.Fatalf("migration paths disagree:\n direct %+v\n via v2 %+v\n via v3 %+v", direct, viaV2, viaV3)
	}
}

func TestMigrationDoesNotMutateInput(t *testing.T) {
	e := engine.New(engine.Options{})
	v1 := decode(t, v1JSON)
	before := decode(t, v1JSON)

	_ = e.Validate(v1)
	if !reflect.DeepEqual(v1, before) {
		t.Fatalf("input mutated by migration")
	}
}

func TestRegistryRejectsBrokenChains(t *testing.T) {
	noop := func(m map[string]any) map[string]any { return m }
	if _, err := engine.NewRegistry("v3", engine.Migration{From: "v1", To: "v2", Apply: noop}); err == nil {
		t.Fatalf("expected error for chain that never reaches current")
	}
	if _, err := engine.NewRegistry("v3",
		engine.Migration{From: "v1", To: "v2", Apply: noop},
		engine.Migration{From: "v2", To: "v1", Apply: noop},
	); err == nil {
		t.Fatalf("expected cycle error")
	}
	reg, err := engine.NewRegistry("v3",
		engine.Migration{From: "v1", To: "v2", Apply: noop},
		engine.Migration{From: "v2", To: "v3", Apply: noop},
		engine.Migration{From: "v0", To: "v1", Apply: noop},
	)
	if err != nil || !reg.Known("v0") {
		t.Fatalf("expected extensible registry, got %v", err)
	}
}
