package reliability

import (
	"encoding/json"
	"fmt"
	"os"
)

// Reliability coefficient bounds. Every coefficient the table hands out,
// including loaded overrides, stays inside them.
const (
	DefaultCoefficient = 0.80
	MinCoefficient     = 0.70
	MaxCoefficient     = 0.98
)

// Table maps rule identifiers to reliability coefficients. It is built once
// at startup and read-only afterwards, so concurrent reads need no locking.
type Table struct {
	coefficients map[string]float64
}

// NewTable creates a table from base coefficients. Values are clamped to
// [MinCoefficient, MaxCoefficient].
func NewTable(base map[string]float64) *Table {
	coeffs := make(map[string]float64, len(base))
	for ruleID, c := range base {
		coeffs[ruleID] = Clamp(c)
	}
	return &Table{coefficients: coeffs}
}

// Reliability returns the coefficient for a rule, or DefaultCoefficient for
// unknown rules.
func (t *Table) Reliability(ruleID string) float64 {
	if c, ok := t.coefficients[ruleID]; ok {
		return c
	}
	return DefaultCoefficient
}

// Merge applies override coefficients on top of the base table, clamping
// each value. Called only during startup.
func (t *Table) Merge(overrides map[string]float64) {
	for ruleID, c := range overrides {
		t.coefficients[ruleID] = Clamp(c)
	}
}

// Snapshot returns a copy of the current coefficients.
func (t *Table) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(t.coefficients))
	for ruleID, c := range t.coefficients {
		out[ruleID] = c
	}
	return out
}

// LoadOverrides reads an override file written by the tuner. A missing file
// is not an error; a malformed one is.
func LoadOverrides(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read overrides: %w", err)
	}

	var overrides map[string]float64
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	return overrides, nil
}

// WriteOverrides writes an override file. Map serialization is key-sorted,
// so identical overrides produce byte-identical files.
func WriteOverrides(path string, overrides map[string]float64) error {
	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write overrides: %w", err)
	}
	return nil
}

// Clamp bounds a coefficient to [MinCoefficient, MaxCoefficient].
func Clamp(c float64) float64 {
	if c < MinCoefficient {
		return MinCoefficient
	}
	if c > MaxCoefficient {
		return MaxCoefficient
	}
	return c
}
