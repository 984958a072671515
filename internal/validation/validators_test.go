package validation

import (
	"strings"
	"testing"

	"github.com/todmy/style-analyzer/internal/nlp"
	"github.com/todmy/style-analyzer/pkg/models"
)

func spanOf(t *testing.T, sentence, segment string) models.Span {
	t.Helper()
	idx := strings.Index(sentence, segment)
	if idx < 0 {
		t.Fatalf("segment %q not in sentence %q", segment, sentence)
	}
	return models.Span{Start: idx, End: idx + len(segment)}
}

func contextFor(sentence string, pos models.Span) *Context {
	return &Context{
		RuleID:        "inclusive_language",
		Sentence:      sentence,
		ErrorPosition: pos,
		Annotation:    nlp.WhitespaceAnnotation(sentence),
	}
}

func TestContextValidatorQuotation(t *testing.T) {
	sentence := `He called it "the master list" in 2005.`
	pos := spanOf(t, sentence, "master")

	v := NewContextValidator()
	evidence := v.Validate(models.RawDetection{}, contextFor(sentence, pos))

	if len(evidence) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(evidence))
	}
	e := evidence[0]
	if e.Type != EvidenceNegativeContext {
		t.Errorf("expected negative_context, got %s", e.Type)
	}
	if e.Confidence < 0.7 || e.Confidence > 0.9 {
		t.Errorf("quotation confidence %v outside [0.7, 0.9]", e.Confidence)
	}
	if e.SourceValidator != "context" {
		t.Errorf("unexpected source validator %q", e.SourceValidator)
	}
}

func TestContextValidatorUnbalancedQuotesIgnored(t *testing.T) {
	sentence := `He said "master branch is fine.`
	pos := spanOf(t, sentence, "master")

	v := NewContextValidator()
	evidence := v.Validate(models.RawDetection{}, contextFor(sentence, pos))
	if len(evidence) != 0 {
		t.Errorf("expected no findings for unbalanced quotes, got %v", evidence)
	}
}

func TestContextValidatorLegacyMarkers(t *testing.T) {
	tests := []struct {
		sentence string
		segment  string
		minConf  float64
	}{
		{"The deprecated master branch is gone.", "master", 0.95},
		{"This was previously called the master list.", "master", 0.8},
		{"Historically, the master node ran alone.", "master", 0.8},
	}

	v := NewContextValidator()
	for _, tt := range tests {
		pos := spanOf(t, tt.sentence, tt.segment)
		evidence := v.Validate(models.RawDetection{}, contextFor(tt.sentence, pos))

		if len(evidence) == 0 {
			t.Errorf("%q: expected a legacy finding", tt.sentence)
			continue
		}
		e := evidence[0]
		if e.Type != EvidenceNegativeContext {
			t.Errorf("%q: expected negative_context, got %s", tt.sentence, e.Type)
		}
		if e.Confidence < tt.minConf || e.Confidence > 1.0 {
			t.Errorf("%q: confidence %v outside [%v, 1.0]", tt.sentence, e.Confidence, tt.minConf)
		}
	}
}

func TestContextValidatorCodeIndicators(t *testing.T) {
	sentence := "Run `master` to see the branch."
	pos := spanOf(t, sentence, "master")

	v := NewContextValidator()
	evidence := v.Validate(models.RawDetection{}, contextFor(sentence, pos))

	if len(evidence) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(evidence))
	}
	if evidence[0].Confidence < 0.8 {
		t.Errorf("expected code confidence >= 0.8, got %v", evidence[0].Confidence)
	}
}

func TestContextValidatorCodeFenceFromExtraContext(t *testing.T) {
	sentence := "git checkout master"
	pos := spanOf(t, sentence, "master")
	detection := models.RawDetection{
		ExtraContext: map[string]any{"preceding_code_fence": true},
	}

	v := NewContextValidator()
	evidence := v.Validate(detection, contextFor(sentence, pos))
	if len(evidence) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(evidence))
	}
	if evidence[0].Confidence < 0.8 {
		t.Errorf("expected fence confidence >= 0.8, got %v", evidence[0].Confidence)
	}
}

func TestContextValidatorCombinesIndicators(t *testing.T) {
	sentence := "The deprecated `master` branch is archived."
	pos := spanOf(t, sentence, "master")

	v := NewContextValidator()
	evidence := v.Validate(models.RawDetection{}, contextFor(sentence, pos))

	if len(evidence) != 2 {
		t.Fatalf("expected 2 distinct findings, got %d", len(evidence))
	}

	max := 0.0
	for _, e := range evidence {
		if e.Confidence > max {
			max = e.Confidence
		}
		if e.Confidence > 1.0 {
			t.Errorf("confidence %v exceeds 1.0", e.Confidence)
		}
	}
	// deprecated (0.95) boosted by the backtick indicator, capped at 1.0.
	if max != 1.0 {
		t.Errorf("expected strongest finding boosted to 1.0, got %v", max)
	}
}

func TestContextValidatorCleanSentence(t *testing.T) {
	sentence := "The master branch needs a new name."
	pos := spanOf(t, sentence, "master")

	v := NewContextValidator()
	if evidence := v.Validate(models.RawDetection{}, contextFor(sentence, pos)); len(evidence) != 0 {
		t.Errorf("expected no findings, got %v", evidence)
	}
}

func TestMorphologicalValidatorSignatureMatch(t *testing.T) {
	sentence := "The master branch needs a new name."
	pos := spanOf(t, sentence, "master")

	ann := nlp.WhitespaceAnnotation(sentence)
	for i := range ann.Tokens {
		if ann.Tokens[i].Text == "master" {
			ann.Tokens[i].POS = "NOUN"
		}
	}

	vctx := contextFor(sentence, pos)
	vctx.Annotation = ann

	v := NewMorphologicalValidator()
	evidence := v.Validate(models.RawDetection{}, vctx)
	if len(evidence) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(evidence))
	}
	if evidence[0].Type != EvidencePositive {
		t.Errorf("expected positive evidence, got %s", evidence[0].Type)
	}
}

func TestMorphologicalValidatorSignatureMismatch(t *testing.T) {
	sentence := "We quickly renamed it."
	pos := spanOf(t, sentence, "quickly")

	ann := nlp.WhitespaceAnnotation(sentence)
	for i := range ann.Tokens {
		if ann.Tokens[i].Text == "quickly" {
			ann.Tokens[i].POS = "ADV"
		}
	}

	vctx := contextFor(sentence, pos)
	vctx.Annotation = ann

	v := NewMorphologicalValidator()
	evidence := v.Validate(models.RawDetection{}, vctx)
	if len(evidence) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(evidence))
	}
	if evidence[0].Type != EvidenceNegative {
		t.Errorf("expected negative evidence on mismatch, got %s", evidence[0].Type)
	}
}

func TestMorphologicalValidatorNoAnnotation(t *testing.T) {
	vctx := contextFor("The master branch.", models.Span{Start: 4, End: 10})
	vctx.Annotation = nil

	v := NewMorphologicalValidator()
	if evidence := v.Validate(models.RawDetection{}, vctx); evidence != nil {
		t.Errorf("expected no evidence without annotation, got %v", evidence)
	}
}

func TestSyntacticValidatorPassiveConfiguration(t *testing.T) {
	sentence := "The file was deleted by the job."
	pos := spanOf(t, sentence, "deleted")

	ann := nlp.WhitespaceAnnotation(sentence)
	for i := range ann.Tokens {
		switch ann.Tokens[i].Text {
		case "was":
			ann.Tokens[i].DepLabel = "aux:pass"
		case "file":
			ann.Tokens[i].DepLabel = "nsubj:pass"
		}
	}

	vctx := contextFor(sentence, pos)
	vctx.RuleID = "passive_voice"
	vctx.Annotation = ann

	v := NewSyntacticValidator()
	evidence := v.Validate(models.RawDetection{}, vctx)
	if len(evidence) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(evidence))
	}
	if evidence[0].Type != EvidencePositive && evidence[0].Type != EvidenceContextual {
		t.Errorf("unexpected evidence type %s", evidence[0].Type)
	}
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		ruleID string
		want   Family
	}{
		{"inclusive_language", FamilyTerminology},
		{"passive_voice", FamilyGrammar},
		{"terminology.custom_terms", FamilyTerminology},
		{"made_up_rule", FamilyGeneral},
		{"", FamilyGeneral},
	}

	for _, tt := range tests {
		if got := FamilyOf(tt.ruleID); got != tt.want {
			t.Errorf("FamilyOf(%q) = %s, want %s", tt.ruleID, got, tt.want)
		}
	}
}
