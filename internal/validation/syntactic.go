package validation

import (
	"fmt"

	"github.com/todmy/style-analyzer/pkg/models"
)

// Dependency labels that indicate the configuration each family expects.
var syntacticLabels = map[Family][]string{
	FamilyGrammar:     {"aux:pass", "nsubj:pass", "auxpass", "nsubjpass"},
	FamilyTerminology: {"nsubj", "obj", "dobj", "attr", "nmod", "compound", "amod"},
	FamilyTone:        {"nsubj", "aux"},
}

// SyntacticValidator emits positive evidence when the detection sits in the
// syntactic configuration its rule family expects.
type SyntacticValidator struct{}

// NewSyntacticValidator creates a syntactic validator
func NewSyntacticValidator() *SyntacticValidator {
	return &SyntacticValidator{}
}

func (v *SyntacticValidator) Name() string {
	return "syntactic"
}

func (v *SyntacticValidator) Validate(detection models.RawDetection, vctx *Context) []Evidence {
	if vctx.Annotation == nil {
		return nil
	}

	labels, ok := syntacticLabels[FamilyOf(vctx.RuleID)]
	if !ok {
		return nil
	}

	token := vctx.Annotation.TokenAt(vctx.ErrorPosition.Start)
	if token == nil {
		return nil
	}

	// Check the flagged token itself, then its immediate neighborhood.
	// Grammar rules in particular fire on a verb whose passive markers sit
	// on dependent tokens.
	if token.DepLabel != "" && containsString(labels, token.DepLabel) {
		return []Evidence{{
			Type:            EvidencePositive,
			Confidence:      0.75,
			Description:     fmt.Sprintf("flagged token %q carries dependency %s, matching the expected configuration", token.Text, token.DepLabel),
			SourceValidator: v.Name(),
		}}
	}

	window := vctx.Annotation.TokensInWindow(vctx.ErrorPosition.Start-30, vctx.ErrorPosition.End+30)
	for _, t := range window {
		if t.DepLabel != "" && containsString(labels, t.DepLabel) {
			return []Evidence{{
				Type:            neighborEvidenceType(t.CharStart, vctx.ErrorPosition),
				Confidence:      0.65,
				Description:     fmt.Sprintf("nearby token %q carries dependency %s, supporting the detection", t.Text, t.DepLabel),
				SourceValidator: v.Name(),
			}}
		}
	}

	return nil
}

// neighborEvidenceType grades neighborhood matches: a match on the flagged
// span is positive, a looser one only contextual.
func neighborEvidenceType(tokenStart int, pos models.Span) EvidenceType {
	if tokenStart >= pos.Start && tokenStart < pos.End {
		return EvidencePositive
	}
	return EvidenceContextual
}
