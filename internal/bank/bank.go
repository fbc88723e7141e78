// Package bank parses and validates question banks and archetype presets.
package bank

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"persona-card-service/internal/domain"
)

// DefaultID names the embedded bank.
const DefaultID = "default"

// Format is the encoding of a bank document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

//go:embed default_bank.yaml
var defaultBankYAML []byte

//go:embed presets.yaml
var defaultPresetsYAML []byte

var validate = validator.New()

// document is the on-disk shape of a bank.
type document struct {
	ID        string  `yaml:"id" json:"id"`
	Questions []entry `yaml:"questions" json:"questions"`
}

// entry mirrors domain.Question with an optional fatigue.
type entry struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Scenario string   `yaml:"scenario" json:"scenario"`
	Targets  []string `yaml:"targets" json:"targets"`
	Fatigue  *float64 `yaml:"fatigue" json:"fatigue"`
	Role     string   `yaml:"role" json:"role"`
	GroupTag string   `yaml:"group_tag" json:"group_tag"`
	Tags     []string `yaml:"tags" json:"tags"`
	Image    string   `yaml:"image" json:"image"`
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes and validates a bank. Entries without fatigue get
// defaultFatigue; entries without a group tag are grouped by role.
func Parse(data []byte, format Format, defaultFatigue float64) ([]domain.Question, error) {
	var doc document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode bank: %w", err)
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode bank: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported bank format %q", format)
	}

	var (
		out   = make([]domain.Question, 0, len(doc.Questions))
		seen  = make(map[string]struct{}, len(doc.Questions))
		probs []string
	)
	for i, e := range doc.Questions {
		q := e.question(defaultFatigue)
		if err := validate.Struct(q); err != nil {
			probs = append(probs, describe(i, q.ID, err)...)
			continue
		}
		if _, dup := seen[q.ID]; dup {
			probs = append(probs, fmt.Sprintf("questions[%d]: duplicate id %q", i, q.ID))
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	if len(probs) > 0 {
		return nil, &domain.ValidationError{Errors: probs}
	}
	if len(out) == 0 {
		return nil, domain.ErrEmptyBank
	}
	return out, nil
}

func (e entry) question(defaultFatigue float64) domain.Question {
	fatigue := defaultFatigue
	if e.Fatigue != nil {
		fatigue = *e.Fatigue
	}
	group := e.GroupTag
	if group == "" {
		group = e.Role
	}
	return domain.Question{
		ID:       strings.TrimSpace(e.ID),
		Title:    e.Title,
		Scenario: strings.TrimRight(e.Scenario, "\n"),
		Targets:  e.Targets,
		Fatigue:  fatigue,
		Role:     e.Role,
		GroupTag: group,
		Tags:     e.Tags,
		Image:    e.Image,
	}
}

func describe(i int, id string, err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{fmt.Sprintf("questions[%d]: %v", i, err)}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("questions[%d] (%s): %s failed %s", i, id, fe.Namespace(), fe.Tag()))
	}
	return out
}

// Default returns the embedded bank.
func Default(defaultFatigue float64) []domain.Question {
	qs, err := Parse(defaultBankYAML, FormatYAML, defaultFatigue)
	if err != nil {
		panic(fmt.Sprintf("embedded bank: %v", err))
	}
	return qs
}

// ParsePresets decodes a YAML or JSON list of archetype presets.
func ParsePresets(data []byte) ([]domain.Preset, error) {
	var presets []domain.Preset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	out := presets[:0]
	for _, p := range presets {
		if p.ID == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// DefaultPresets returns the embedded archetypes.
func DefaultPresets() []domain.Preset {
	presets, err := ParsePresets(defaultPresetsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded presets: %v", err))
	}
	return presets
}

// FileLoader loads banks from <dir>/<bankID>.yaml or .json. The default bank
// falls back to the embedded copy when no file overrides it.
type FileLoader struct {
	dir            string
	defaultFatigue float64
}

func NewFileLoader(dir string, defaultFatigue float64) *FileLoader {
	return &FileLoader{dir: dir, defaultFatigue: defaultFatigue}
}

func (l *FileLoader) LoadBank(_ context.Context, bankID string) ([]domain.Question, error) {
	if strings.ContainsAny(bankID, `/\`) || bankID == "" || bankID == "." || bankID == ".." {
		return nil, domain.ErrBankNotFound
	}
	if l.dir != "" {
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			path := filepath.Join(l.dir, bankID+ext)
			data, err := os.ReadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("read bank %s: %w", path, err)
			}
			return Parse(data, FormatFromPath(path), l.defaultFatigue)
		}
	}
	if bankID == DefaultID {
		return Default(l.defaultFatigue), nil
	}
	return nil, domain.ErrBankNotFound
}
