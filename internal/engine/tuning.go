package engine

// Tuning holds the empirically chosen constants of the aggregator and the
// question selector. Values are kept for behavior parity; override them from
// config rather than editing the defaults.
type Tuning struct {
	// Epsilon guards weighted means against a zero weight sum.
	Epsilon float64 `yaml:"epsilon"`
	// MaxEffort is the upper bound of effort.points_awarded per record.
	MaxEffort int `yaml:"max_effort"`
	// PointsCap bounds points.now and is the unlock threshold.
	PointsCap int `yaml:"points_cap"`
	// ConfidenceFloor is the lower clamp of the points factor applied to confidence.
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	// PriorityAxes is how many of the neediest axes earn the priority bonus.
	PriorityAxes int `yaml:"priority_axes"`
	// PriorityBonus is added per targeted axis that is in the priority set.
	PriorityBonus int `yaml:"priority_bonus"`
	// FatigueMultiplier scales a question's fatigue into a cost.
	FatigueMultiplier float64 `yaml:"fatigue_multiplier"`
	// RolePenalty applies when a question repeats the group tag of the last one asked.
	RolePenalty int `yaml:"role_penalty"`
	// DefaultFatigue is used for bank entries that omit fatigue.
	DefaultFatigue float64 `yaml:"default_fatigue"`
}

// DefaultTuning returns the reference constants.
func DefaultTuning() Tuning {
	return Tuning{
		Epsilon:           1e-4,
		MaxEffort:         50,
		PointsCap:         100,
		ConfidenceFloor:   0.4,
		PriorityAxes:      2,
		PriorityBonus:     12,
		FatigueMultiplier: 10,
		RolePenalty:       8,
		DefaultFatigue:    2,
	}
}

// Merge returns t with every zero field replaced by the default.
func (t Tuning) Merge() Tuning {
	d := DefaultTuning()
	if t.Epsilon <= 0 {
		t.Epsilon = d.Epsilon
	}
	if t.MaxEffort <= 0 {
		t.MaxEffort = d.MaxEffort
	}
	if t.PointsCap <= 0 {
		t.PointsCap = d.PointsCap
	}
	if t.ConfidenceFloor <= 0 {
		t.ConfidenceFloor = d.ConfidenceFloor
	}
	if t.PriorityAxes <= 0 {
		t.PriorityAxes = d.PriorityAxes
	}
	if t.PriorityBonus == 0 {
		t.PriorityBonus = d.PriorityBonus
	}
	if t.FatigueMultiplier == 0 {
		t.FatigueMultiplier = d.FatigueMultiplier
	}
	if t.RolePenalty == 0 {
		t.RolePenalty = d.RolePenalty
	}
	if t.DefaultFatigue == 0 {
		t.DefaultFatigue = d.DefaultFatigue
	}
	return t
}

// QuadrantLabels names the poles of the trait plane. Only the naming and
// concatenation order are configurable: x > 0 always means practicality-leaning
// and y > 0 wisdom-leaning, and zero resolves to the positive pole.
type QuadrantLabels struct {
	PositiveX string `yaml:"positive_x"`
	NegativeX string `yaml:"negative_x"`
	PositiveY string `yaml:"positive_y"`
	NegativeY string `yaml:"negative_y"`
	// XFirst puts the x pole before the y pole ("PW" instead of "WP").
	XFirst bool `yaml:"x_first"`
	// Separator is placed between the two pole names.
	Separator string `yaml:"separator"`
	// Empty is the label of a target without records.
	Empty string `yaml:"empty"`
}

// DefaultQuadrantLabels returns single-letter poles, y first.
func DefaultQuadrantLabels() QuadrantLabels {
	return QuadrantLabels{
		PositiveX: "P",
		NegativeX: "E",
		PositiveY: "W",
		NegativeY: "K",
		Empty:     "—",
	}
}

// Merge fills unset pole names from the defaults.
func (l QuadrantLabels) Merge() QuadrantLabels {
	d := DefaultQuadrantLabels()
	if l.PositiveX == "" {
		l.PositiveX = d.PositiveX
	}
	if l.NegativeX == "" {
		l.NegativeX = d.NegativeX
	}
	if l.PositiveY == "" {
		l.PositiveY = d.PositiveY
	}
	if l.NegativeY == "" {
		l.NegativeY = d.NegativeY
	}
	if l.Empty == "" {
		l.Empty = d.Empty
	}
	return l
}
