package consolidation

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/todmy/style-analyzer/internal/confidence"
	"github.com/todmy/style-analyzer/internal/config"
	"github.com/todmy/style-analyzer/internal/metrics"
	"github.com/todmy/style-analyzer/internal/nlp"
	"github.com/todmy/style-analyzer/internal/reliability"
	"github.com/todmy/style-analyzer/internal/validation"
	"github.com/todmy/style-analyzer/pkg/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func newConsolidator(cfg config.Config) (*Consolidator, *metrics.Sink) {
	sink := metrics.NewSink()
	return NewConsolidator(cfg, DefaultConsolidatorConfig(), sink), sink
}

func acceptedResult(ruleID string, span models.Span, line int, evidence, confidence float64, message string, suggestions ...string) validation.Result {
	return validation.Result{
		Detection: models.RawDetection{
			RuleID:        ruleID,
			Span:          span,
			SentenceText:  "The master list was renamed after migration finished.",
			LineNumber:    line,
			TextSegment:   "master",
			Message:       message,
			Suggestions:   suggestions,
			EvidenceScore: floatPtr(evidence),
		},
		Decision:        validation.DecisionAccept,
		ConfidenceScore: confidence,
	}
}

func TestConsolidateDropsNonAccepted(t *testing.T) {
	c, _ := newConsolidator(config.Default())

	results := []validation.Result{
		{Decision: validation.DecisionReject, ConfidenceScore: 0.9},
		{Decision: validation.DecisionUncertain, ConfidenceScore: 0.9},
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 3, 0.80, 0.70, "Use 'allowlist'"),
	}

	out := c.Consolidate(results)
	if len(out) != 1 {
		t.Fatalf("expected 1 surfaced error, got %d", len(out))
	}
	if out[0].Type != "inclusive_language" {
		t.Errorf("unexpected error type %q", out[0].Type)
	}
}

func TestStrongEvidenceMerge(t *testing.T) {
	c, sink := newConsolidator(config.Default())

	results := []validation.Result{
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 3, 0.92, 0.70, "Use 'allowlist'", "allowlist"),
		acceptedResult("word_usage", models.Span{Start: 4, End: 10}, 3, 0.60, 0.80, "Consider alternative term", "blocklist"),
	}

	out := c.Consolidate(results)
	if len(out) != 1 {
		t.Fatalf("expected overlapping detections merged into 1, got %d", len(out))
	}

	e := out[0]
	if e.Message != "Use 'allowlist'" {
		t.Errorf("expected the strong member's message verbatim, got %q", e.Message)
	}
	if e.ConfidenceScore < 0.75 {
		t.Errorf("expected merged confidence >= 0.75, got %v", e.ConfidenceScore)
	}
	if !reflect.DeepEqual(e.EvidenceSources, []string{"inclusive_language"}) {
		t.Errorf("expected evidence_sources [inclusive_language], got %v", e.EvidenceSources)
	}
	if !reflect.DeepEqual(e.Suggestions, []string{"allowlist", "blocklist"}) {
		t.Errorf("expected union of suggestions with primary first, got %v", e.Suggestions)
	}
	if got := sink.Snapshot()[metrics.CounterConsolidationAdjustments]; got != 1 {
		t.Errorf("expected adjustment counter 1, got %v", got)
	}
}

func TestGroupingTolerance(t *testing.T) {
	c, _ := newConsolidator(config.Default())

	results := []validation.Result{
		// Gap of 2 groups; gap of 3 does not.
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 3, 0.95, 0.80, "first"),
		acceptedResult("word_usage", models.Span{Start: 12, End: 16}, 3, 0.50, 0.60, "adjacent"),
		acceptedResult("word_usage", models.Span{Start: 19, End: 25}, 3, 0.50, 0.60, "distant"),
	}

	out := c.Consolidate(results)
	if len(out) != 2 {
		t.Fatalf("expected 2 errors after grouping, got %d", len(out))
	}
	if out[0].Message != "first" {
		t.Errorf("expected primary message preserved, got %q", out[0].Message)
	}
	if out[1].Message != "distant" {
		t.Errorf("expected distant detection separate, got %q", out[1].Message)
	}
}

func TestGroupingRequiresSameLineAndFamily(t *testing.T) {
	c, _ := newConsolidator(config.Default())

	results := []validation.Result{
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 3, 0.95, 0.80, "line three"),
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 4, 0.95, 0.80, "line four"),
		acceptedResult("passive_voice", models.Span{Start: 4, End: 10}, 3, 0.95, 0.80, "other family"),
	}

	out := c.Consolidate(results)
	if len(out) != 3 {
		t.Fatalf("expected no grouping across lines or families, got %d errors", len(out))
	}
}

func TestSoftFloorRescue(t *testing.T) {
	cfg := config.Default()
	cfg.SoftFloors["inclusive_language"] = config.SoftFloor{EvidenceMin: 0.85, Floor: 0.60}
	c, sink := newConsolidator(cfg)

	results := []validation.Result{
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 3, 0.88, 0.45, "rescued"),
	}

	out := c.Consolidate(results)
	if len(out) != 1 {
		t.Fatalf("expected the error to survive via soft floor, got %d", len(out))
	}
	if out[0].ConfidenceScore != 0.60 {
		t.Errorf("expected confidence raised to 0.60, got %v", out[0].ConfidenceScore)
	}
	if !out[0].Provenance.FloorGuardTriggered {
		t.Error("expected floor guard recorded in provenance")
	}
	if got := sink.Snapshot()[metrics.CounterFloorTriggered]; got != 1 {
		t.Errorf("expected confidence_floor_triggered counter 1, got %v", got)
	}
}

// The floor rescue must be counted where it happens: once in the pipeline
// when the calculator applies the floor, and not again when consolidation
// sees the already-floored confidence.
func TestSoftFloorCountedOnPipelinePath(t *testing.T) {
	cfg := config.Default()
	cfg.SoftFloors["inclusive_language"] = config.SoftFloor{EvidenceMin: 0.85, Floor: 0.60}

	sentence := "The master branch needs a new name."
	annotator := nlp.NewStaticAnnotator(map[string]*nlp.Annotation{
		sentence: {
			Sentence: sentence,
			Tokens: []nlp.Token{
				{Text: "The", Lemma: "the", POS: "DET", CharStart: 0, CharEnd: 3},
				{Text: "master", Lemma: "master", POS: "NOUN", DepLabel: "compound", CharStart: 4, CharEnd: 10},
				{Text: "branch", Lemma: "branch", POS: "NOUN", DepLabel: "nsubj", CharStart: 11, CharEnd: 17},
				{Text: "needs", Lemma: "need", POS: "VERB", DepLabel: "root", CharStart: 18, CharEnd: 23},
			},
		},
	})

	sink := metrics.NewSink()
	table := reliability.NewTable(map[string]float64{"inclusive_language": 0.70})
	pipeline := validation.NewPipeline(
		cfg,
		validation.DefaultPipelineConfig(),
		table,
		confidence.NewCalculator(cfg),
		annotator,
		sink,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	consolidator := NewConsolidator(cfg, DefaultConsolidatorConfig(), sink)

	results := pipeline.Process(context.Background(),
		[]models.RawDetection{{
			RuleID:        "inclusive_language",
			Span:          models.Span{Start: 4, End: 10},
			SentenceText:  sentence,
			LineNumber:    3,
			TextSegment:   "master",
			Message:       "Consider an alternative to 'master'",
			EvidenceScore: floatPtr(0.88),
		}},
		models.DocumentContext{ContentType: "technical", SessionID: "s1"},
	)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Decision != validation.DecisionAccept {
		t.Fatalf("expected accept, got %s (%s)", r.Decision, r.Reasoning)
	}
	if r.ConfidenceScore != 0.60 {
		t.Fatalf("expected confidence floored to 0.60, got %v", r.ConfidenceScore)
	}
	if !r.Metadata.Provenance.FloorGuardTriggered {
		t.Fatal("expected floor guard recorded in provenance")
	}
	if got := sink.Snapshot()[metrics.CounterFloorTriggered]; got != 1 {
		t.Fatalf("expected confidence_floor_triggered counter 1 after validation, got %v", got)
	}

	out := consolidator.Consolidate(results)
	if len(out) != 1 {
		t.Fatalf("expected 1 surfaced error, got %d", len(out))
	}
	if out[0].ConfidenceScore != 0.60 {
		t.Errorf("expected surfaced confidence 0.60, got %v", out[0].ConfidenceScore)
	}
	if got := sink.Snapshot()[metrics.CounterFloorTriggered]; got != 1 {
		t.Errorf("expected counter still 1 after consolidation, got %v", got)
	}
}

func TestSoftFloorRequiresEvidence(t *testing.T) {
	cfg := config.Default()
	cfg.SoftFloors["inclusive_language"] = config.SoftFloor{EvidenceMin: 0.85, Floor: 0.60}
	c, _ := newConsolidator(cfg)

	results := []validation.Result{
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 3, 0.50, 0.30, "weak evidence"),
	}

	if out := c.Consolidate(results); len(out) != 0 {
		t.Errorf("expected hard threshold to drop the error, got %v", out)
	}
}

func TestHardThresholdGoverns(t *testing.T) {
	c, _ := newConsolidator(config.Default())

	results := []validation.Result{
		acceptedResult("sentence_length", models.Span{Start: 0, End: 10}, 1, 0.40, 0.20, "too weak"),
		acceptedResult("sentence_length", models.Span{Start: 30, End: 40}, 5, 0.40, 0.50, "strong enough"),
	}

	out := c.Consolidate(results)
	if len(out) != 1 {
		t.Fatalf("expected 1 surviving error, got %d", len(out))
	}
	if out[0].Message != "strong enough" {
		t.Errorf("unexpected survivor %q", out[0].Message)
	}
}

func TestConsolidationIdempotent(t *testing.T) {
	c, _ := newConsolidator(config.Default())

	results := []validation.Result{
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 3, 0.92, 0.70, "Use 'allowlist'", "allowlist"),
		acceptedResult("word_usage", models.Span{Start: 8, End: 14}, 3, 0.60, 0.80, "Consider alternative", "blocklist"),
		acceptedResult("passive_voice", models.Span{Start: 20, End: 27}, 7, 0.75, 0.66, "Prefer active voice"),
	}

	once := c.Consolidate(results)
	twice := c.ConsolidateErrors(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("expected consolidation to be a no-op on consolidated input:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestConsolidatePreservesInputOrder(t *testing.T) {
	c, _ := newConsolidator(config.Default())

	results := []validation.Result{
		acceptedResult("passive_voice", models.Span{Start: 50, End: 57}, 9, 0.70, 0.60, "later line first"),
		acceptedResult("inclusive_language", models.Span{Start: 4, End: 10}, 3, 0.80, 0.70, "earlier line second"),
	}

	out := c.Consolidate(results)
	if len(out) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(out))
	}
	if out[0].Message != "later line first" || out[1].Message != "earlier line second" {
		t.Errorf("expected input order preserved, got %q then %q", out[0].Message, out[1].Message)
	}
}
