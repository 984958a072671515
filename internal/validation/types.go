package validation

import (
	"errors"

	"github.com/todmy/style-analyzer/internal/nlp"
	"github.com/todmy/style-analyzer/pkg/models"
)

var (
	// ErrInvalidDetection is returned for detections that fail ingress checks.
	ErrInvalidDetection = errors.New("invalid detection")
)

// Decision is the pipeline's verdict for one detection.
type Decision string

const (
	DecisionAccept    Decision = "accept"
	DecisionReject    Decision = "reject"
	DecisionUncertain Decision = "uncertain"
)

// EvidenceType classifies a validator finding.
type EvidenceType string

const (
	EvidencePositive        EvidenceType = "positive"
	EvidenceNegative        EvidenceType = "negative"
	EvidenceContextual      EvidenceType = "contextual"
	EvidenceNegativeContext EvidenceType = "negative_context"
)

// IsNegative reports whether the evidence type opposes the detection.
func (t EvidenceType) IsNegative() bool {
	return t == EvidenceNegative || t == EvidenceNegativeContext
}

// Evidence is a typed, quantified signal from a validator.
type Evidence struct {
	Type            EvidenceType `json:"evidence_type"`
	Confidence      float64      `json:"confidence"`
	Description     string       `json:"description"`
	SourceValidator string       `json:"source_validator"`
}

// Context is the per-detection validation context. Built once, immutable.
type Context struct {
	RuleID         string
	Sentence       string
	ErrorPosition  models.Span
	ContentType    string
	DomainAnalysis models.DomainAnalysis

	// SessionID and EvidenceScore travel in the original system's
	// additional_context mapping.
	SessionID     string
	EvidenceScore *float64

	// Annotation is the read-only NLP view of the sentence, provided by
	// the upstream collaborator. Validators never recompute it.
	Annotation *nlp.Annotation
}

// Metadata records how a result was reached.
type Metadata struct {
	ShortcutApplied bool              `json:"shortcut_applied"`
	EarlyTerminated bool              `json:"early_terminated"`
	Provenance      models.Provenance `json:"provenance"`
}

// Result is the pipeline's output for one detection.
type Result struct {
	Detection       models.RawDetection `json:"detection"`
	Decision        Decision            `json:"decision"`
	ConfidenceScore float64             `json:"confidence_score"`
	Evidence        []Evidence          `json:"evidence"`
	Reasoning       string              `json:"reasoning"`
	Metadata        Metadata            `json:"metadata"`
}

// Validator is a single validation pass. Implementations are pure functions
// of the detection and context; they emit evidence and never decide.
type Validator interface {
	Name() string
	Validate(detection models.RawDetection, vctx *Context) []Evidence
}
