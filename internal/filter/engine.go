package filter

import (
	"log/slog"

	"github.com/todmy/style-analyzer/pkg/models"
)

// Severity buckets in display order.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityError      Severity = "error"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// AllSeverities returns the four buckets in display order.
func AllSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityError, SeverityWarning, SeveritySuggestion}
}

// Presets map UI preset keys to filter sets.
var presets = map[string][]Severity{
	"focus-mode":     {SeverityCritical, SeverityError},
	"review-mode":    {SeverityCritical, SeverityError, SeverityWarning},
	"complete-audit": {SeverityCritical, SeverityError, SeverityWarning, SeveritySuggestion},
}

// Classify maps a confidence in [0, 1] to a severity bucket. The thresholds
// are exact on the integer percentage: >= 85 critical, >= 70 error,
// >= 50 warning, else suggestion. Counts and filtering both use it.
func Classify(confidence float64) Severity {
	pct := int(confidence * 100)
	switch {
	case pct >= 85:
		return SeverityCritical
	case pct >= 70:
		return SeverityError
	case pct >= 50:
		return SeverityWarning
	default:
		return SeveritySuggestion
	}
}

// State is a snapshot of the engine handed to callbacks and the UI.
type State struct {
	ActiveFilters  []Severity           `json:"active_filters"`
	TotalCounts    map[Severity]int     `json:"total_counts"`
	FilteredErrors []models.Error       `json:"filtered_errors"`
	OriginalErrors []models.Error       `json:"original_errors"`
}

// Callback observes filter state changes.
type Callback func(State)

// Engine is the per-session smart filter. It holds a snapshot of the
// surfaced errors and a derived filtered view; input errors are never
// mutated. Not safe for concurrent use; callers serialize per session.
type Engine struct {
	active   map[Severity]bool
	original []models.Error
	logger   *slog.Logger

	callbacks  map[int]Callback
	nextCallID int

	// notifying guards the notification path against re-entry from
	// callbacks that mutate filter state.
	notifying bool
}

// NewEngine creates an engine with all four buckets active.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		active:    make(map[Severity]bool, 4),
		callbacks: make(map[int]Callback),
		logger:    logger,
	}
	for _, s := range AllSeverities() {
		e.active[s] = true
	}
	return e
}

// ApplyFilters loads a fresh error list, classifies each error, and
// notifies observers. The input slice is copied, never mutated.
func (e *Engine) ApplyFilters(errors []models.Error) {
	if e.dropIfNotifying("apply_filters") {
		return
	}

	e.original = make([]models.Error, len(errors))
	for i, err := range errors {
		err.Severity = string(Classify(err.ConfidenceScore))
		e.original[i] = err
	}
	e.notify()
}

// ToggleFilter applies the click-to-exclusive contract: clicking the only
// active chip restores all four; any other click restricts to that chip.
// Unknown severities are logged and ignored.
func (e *Engine) ToggleFilter(level Severity) {
	if !validSeverity(level) {
		e.logger.Warn("ignoring unknown severity", "severity", string(level))
		return
	}
	if e.dropIfNotifying("toggle_filter") {
		return
	}

	if e.exclusivelyActive(level) {
		e.activateAll()
	} else {
		for _, s := range AllSeverities() {
			e.active[s] = s == level
		}
	}
	e.notify()
}

// ResetFilters restores all four buckets.
func (e *Engine) ResetFilters() {
	if e.dropIfNotifying("reset_filters") {
		return
	}
	e.activateAll()
	e.notify()
}

// ApplyPreset activates a named preset. Unknown keys are logged and
// ignored; state is unchanged.
func (e *Engine) ApplyPreset(key string) {
	levels, ok := presets[key]
	if !ok {
		e.logger.Warn("ignoring unknown filter preset", "preset", key)
		return
	}
	if e.dropIfNotifying("apply_preset") {
		return
	}

	for _, s := range AllSeverities() {
		e.active[s] = false
	}
	for _, s := range levels {
		e.active[s] = true
	}
	e.notify()
}

// OnFilterChange registers a callback and returns its registration id.
func (e *Engine) OnFilterChange(cb Callback) int {
	e.nextCallID++
	e.callbacks[e.nextCallID] = cb
	return e.nextCallID
}

// OffFilterChange removes a previously registered callback.
func (e *Engine) OffFilterChange(id int) {
	delete(e.callbacks, id)
}

// GetFilterState returns the current snapshot.
func (e *Engine) GetFilterState() State {
	return e.snapshot()
}

func (e *Engine) notify() {
	e.notifying = true
	defer func() { e.notifying = false }()

	state := e.snapshot()
	for _, cb := range e.callbacks {
		cb(state)
	}
}

// dropIfNotifying detects state mutation attempted from inside a callback.
// The attempt is logged and dropped; it is not a correctness hazard.
func (e *Engine) dropIfNotifying(op string) bool {
	if e.notifying {
		e.logger.Warn("dropping re-entrant filter operation", "operation", op)
		return true
	}
	return false
}

func (e *Engine) snapshot() State {
	state := State{
		TotalCounts:    make(map[Severity]int, 4),
		OriginalErrors: append([]models.Error(nil), e.original...),
	}

	for _, s := range AllSeverities() {
		if e.active[s] {
			state.ActiveFilters = append(state.ActiveFilters, s)
		}
		state.TotalCounts[s] = 0
	}

	for _, err := range e.original {
		sev := Severity(err.Severity)
		state.TotalCounts[sev]++
		if e.active[sev] {
			state.FilteredErrors = append(state.FilteredErrors, err)
		}
	}

	return state
}

func (e *Engine) exclusivelyActive(level Severity) bool {
	for _, s := range AllSeverities() {
		if e.active[s] != (s == level) {
			return false
		}
	}
	return true
}

func (e *Engine) activateAll() {
	for _, s := range AllSeverities() {
		e.active[s] = true
	}
}

func validSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityError, SeverityWarning, SeveritySuggestion:
		return true
	}
	return false
}
