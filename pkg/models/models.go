package models

// Span marks a character range within a sentence.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Length returns the number of characters covered by the span.
func (s Span) Length() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one character.
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// DomainAnalysis carries document-level signals from the upstream engine.
type DomainAnalysis struct {
	MixedContentDetected bool     `json:"mixed_content_detected"`
	DomainTags           []string `json:"domain_tags,omitempty"`
}

// RawDetection is a single rule's raw claim that a span of text is
// problematic. It is immutable input to the validation pipeline.
type RawDetection struct {
	RuleID        string         `json:"rule_id"`
	Span          Span           `json:"span"`
	SentenceText  string         `json:"sentence_text"`
	LineNumber    int            `json:"line_number"`
	TextSegment   string         `json:"text_segment"`
	Message       string         `json:"message"`
	Suggestions   []string       `json:"suggestions,omitempty"`
	EvidenceScore *float64       `json:"evidence_score,omitempty"`
	ExtraContext  map[string]any `json:"extra_context,omitempty"`
}

// Evidence returns the rule engine's own confidence in the detection,
// or 0 and false when the rule is not evidence-based.
func (d RawDetection) Evidence() (float64, bool) {
	if d.EvidenceScore == nil {
		return 0, false
	}
	return *d.EvidenceScore, true
}

// Provenance records how a final confidence was produced.
type Provenance struct {
	EvidenceWeight      float64 `json:"evidence_weight"`
	ModelWeight         float64 `json:"model_weight"`
	RuleReliability     float64 `json:"rule_reliability"`
	ContentModifier     float64 `json:"content_modifier"`
	FloorGuardTriggered bool    `json:"floor_guard_triggered"`
}

// Error is a consolidated style error surfaced to the UI.
type Error struct {
	Type            string     `json:"type"`
	Message         string     `json:"message"`
	Suggestions     []string   `json:"suggestions,omitempty"`
	TextSegment     string     `json:"text_segment"`
	LineNumber      int        `json:"line_number"`
	Position        Span       `json:"position"`
	ConfidenceScore float64    `json:"confidence_score"`
	Provenance      Provenance `json:"confidence_provenance"`
	EvidenceSources []string   `json:"evidence_sources,omitempty"`
	Severity        string     `json:"severity,omitempty"`

	// EvidenceScore is kept for consolidation and soft-floor checks;
	// it is not part of the UI contract.
	EvidenceScore float64 `json:"-"`
}

// DocumentContext describes the analyzed document as seen by the pipeline.
type DocumentContext struct {
	ContentType    string         `json:"content_type"`
	DomainAnalysis DomainAnalysis `json:"domain_analysis"`
	SessionID      string         `json:"session_id,omitempty"`
}
