package engine

import (
	"fmt"
	"sort"
	"strings"

	"persona-card-service/internal/domain"
)

// Schema version tags.
const (
	SchemaV1 = "persona.schema.v1"
	SchemaV2 = "persona.schema.v2"
	SchemaV3 = "persona.schema.v3"

	CurrentSchema = SchemaV3
)

const (
	legacyConfidence  = 60
	legacyAvgFallback = 50
	legacyMinPoints   = 10
	legacyMaxPoints   = 35
	legacyEffortWhy   = "Migrated from v1 record (approx points)."
)

// displayObjects are the record sections that carry no scores and may be
// backfilled when a legacy record lacks them.
var displayObjects = []string{"signals", "risk_flags", "needs_clarification", "notes"}

// Migration upgrades a decoded record by exactly one schema version.
// Apply must not mutate its input.
type Migration struct {
	From  string
	To    string
	Apply func(map[string]any) map[string]any
}

// Registry knows the current schema tag and the one-directional migration
// chain from every legacy tag into it.
type Registry struct {
	current string
	steps   map[string]Migration
}

// NewRegistry builds a registry and checks that every legacy version reaches
// the current one without cycles.
func NewRegistry(current string, steps ...Migration) (*Registry, error) {
	r := &Registry{current: current, steps: make(map[string]Migration, len(steps))}
	for _, s := range steps {
		if s.From == current {
			return nil, fmt.Errorf("migration from current schema %q", current)
		}
		if _, dup := r.steps[s.From]; dup {
			return nil, fmt.Errorf("duplicate migration from %q", s.From)
		}
		r.steps[s.From] = s
	}
	for from := range r.steps {
		seen := map[string]bool{}
		v := from
		for v != current {
			if seen[v] {
				return nil, fmt.Errorf("migration cycle at %q", v)
			}
			seen[v] = true
			step, ok := r.steps[v]
			if !ok {
				return nil, fmt.Errorf("schema %q does not reach %q", from, current)
			}
			v = step.To
		}
	}
	return r, nil
}

// DefaultRegistry returns the registry for v1, v2 and v3.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(CurrentSchema,
		Migration{From: SchemaV1, To: SchemaV2, Apply: migrateV1toV2},
		Migration{From: SchemaV2, To: SchemaV3, Apply: migrateV2toV3},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Current returns the current schema tag.
func (r *Registry) Current() string { return r.current }

// Known reports whether version is the current tag or a registered legacy tag.
func (r *Registry) Known(version string) bool {
	if version == r.current {
		return true
	}
	_, ok := r.steps[version]
	return ok
}

// Versions lists every accepted tag, current first.
func (r *Registry) Versions() []string {
	legacy := make([]string, 0, len(r.steps))
	for v := range r.steps {
		legacy = append(legacy, v)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(legacy)))
	return append([]string{r.current}, legacy...)
}

// Step applies a single migration hop. Records already at the current
// version are returned as a copy.
func (r *Registry) Step(obj map[string]any) (map[string]any, error) {
	version, _ := obj["schema_version"].(string)
	if version == r.current {
		return cloneMap(obj), nil
	}
	step, ok := r.steps[version]
	if !ok {
		return nil, r.unknown(version)
	}
	return step.Apply(obj), nil
}

// Migrate walks the chain until obj is in the current shape.
func (r *Registry) Migrate(obj map[string]any) (map[string]any, error) {
	version, _ := obj["schema_version"].(string)
	if !r.Known(version) {
		return nil, r.unknown(version)
	}
	out := cloneMap(obj)
	for version != r.current {
		out = r.steps[version].Apply(out)
		version, _ = out["schema_version"].(string)
	}
	return out, nil
}

func (r *Registry) unknown(version string) error {
	return fmt.Errorf("%w: %q (accepted: %s)", domain.ErrUnknownSchemaVersion, version, strings.Join(r.Versions(), ", "))
}

// migrateV1toV2 backfills confidence and synthesizes effort points from the
// average stated confidence.
func migrateV1toV2(in map[string]any) map[string]any {
	out := cloneMap(in)
	out["schema_version"] = SchemaV2

	conf, _ := out["confidence"].(map[string]any)
	if conf == nil {
		conf = map[string]any{}
	}
	var sum float64
	for _, axis := range domain.ConfidenceAxes {
		if f, ok := number(conf[axis]); ok {
			sum += f
		} else {
			sum += legacyAvgFallback
		}
		if conf[axis] == nil {
			conf[axis] = float64(legacyConfidence)
		}
	}
	out["confidence"] = conf

	avg := sum / float64(len(domain.ConfidenceAxes))
	points := clampRound(avg/3, legacyMinPoints, legacyMaxPoints)
	out["effort"] = map[string]any{
		"points_awarded": float64(points),
		"why":            legacyEffortWhy,
	}
	backfillDisplay(out)
	return out
}

// migrateV2toV3 renames qid and resolves playfulness into frivolity.
func migrateV2toV3(in map[string]any) map[string]any {
	out := cloneMap(in)
	out["schema_version"] = SchemaV3

	if _, ok := out["question_id"]; !ok {
		if qid, ok := out["qid"]; ok {
			out["question_id"] = qid
		}
	}
	delete(out, "qid")

	if meta, ok := out["meta"].(map[string]any); ok {
		if meta["frivolity"] == nil {
			if p := meta["playfulness"]; p != nil {
				meta["frivolity"] = p
			} else {
				meta["frivolity"] = float64(0)
			}
		}
		delete(meta, "playfulness")
	}
	backfillDisplay(out)
	return out
}

func backfillDisplay(obj map[string]any) {
	for _, key := range displayObjects {
		if _, ok := obj[key].(map[string]any); !ok {
			obj[key] = map[string]any{}
		}
	}
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
