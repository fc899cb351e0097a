package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ashita-ai/kenko/internal/model"
)

// Overrides is the YAML shape of a rules file. Every field is optional;
// anything omitted keeps its default.
//
//	kpis:
//	  churn-rate:
//	    target: 4
//	    thresholds: {excellent: 2, good: 4, warning: 7}
//	combination: {financial: 0.5, customer: 0.3, operational: 0.2}
//	areas:
//	  revenue: {critical: 0.55, warning: 0.8}
type Overrides struct {
	KPIs        map[model.KPIID]KPIOverride `yaml:"kpis"`
	Combination *Combination                `yaml:"combination"`
	Areas       map[model.Area]AreaOverride `yaml:"areas"`
}

// KPIOverride adjusts one KPI rule.
type KPIOverride struct {
	Target       *float64    `yaml:"target"`
	TargetGrowth *float64    `yaml:"target_growth"`
	Weight       *float64    `yaml:"weight"`
	Thresholds   *Thresholds `yaml:"thresholds"`
}

// AreaOverride adjusts one area's state thresholds.
type AreaOverride struct {
	Critical *float64 `yaml:"critical"`
	Warning  *float64 `yaml:"warning"`
}

// Load reads a YAML rules file and applies it on top of Default. An empty
// path returns Default.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("rules: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes YAML overrides from r and returns the validated result.
func Parse(r io.Reader) (*Rules, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rules: read: %w", err)
	}
	var o Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("rules: decode: %w", err)
	}
	return Default().Apply(o)
}

// Apply returns a new Rules with o applied. The receiver is unchanged.
func (r *Rules) Apply(o Overrides) (*Rules, error) {
	out := &Rules{
		kpis:        maps.Clone(r.kpis),
		combination: r.combination,
		factors:     r.Factors(),
		scoring:     r.Scoring(),
		insights:    r.insights,
		areas:       maps.Clone(r.areas),
		profiles:    maps.Clone(r.profiles),
	}

	for id, ko := range o.KPIs {
		k, ok := out.kpis[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown kpi %q", ErrInvalid, id)
		}
		if ko.Target != nil {
			k.Target = *ko.Target
		}
		if ko.TargetGrowth != nil {
			k.TargetGrowth = *ko.TargetGrowth
		}
		if ko.Weight != nil {
			k.Weight = *ko.Weight
		}
		if ko.Thresholds != nil {
			k.Thresholds = *ko.Thresholds
		}
		out.kpis[id] = k
	}

	if o.Combination != nil {
		out.combination = *o.Combination
	}

	for a, ao := range o.Areas {
		ar, ok := out.areas[a]
		if !ok {
			return nil, fmt.Errorf("%w: unknown area %q", ErrInvalid, a)
		}
		if ao.Critical != nil {
			ar.CriticalThreshold = *ao.Critical
		}
		if ao.Warning != nil {
			ar.WarningThreshold = *ao.Warning
		}
		out.areas[a] = ar
	}

	out.normalize()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
