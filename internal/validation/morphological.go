package validation

import (
	"fmt"

	"github.com/todmy/style-analyzer/pkg/models"
)

// morphSignature describes the token shapes a rule family flags.
type morphSignature struct {
	pos []string
	// lemmaDiffers marks families whose rules fire on inflected forms, so
	// a surface form differing from its lemma supports the detection.
	lemmaDiffers bool
}

var morphSignatures = map[Family]morphSignature{
	FamilyTerminology: {pos: []string{"NOUN", "PROPN", "ADJ"}},
	FamilyGrammar:     {pos: []string{"VERB", "AUX"}, lemmaDiffers: true},
	FamilyTone:        {pos: []string{"PRON", "VERB"}},
	FamilyPunctuation: {pos: []string{"PUNCT"}},
}

// MorphologicalValidator emits positive evidence when the flagged token's
// part of speech and inflection match what the rule family targets.
type MorphologicalValidator struct{}

// NewMorphologicalValidator creates a morphological validator
func NewMorphologicalValidator() *MorphologicalValidator {
	return &MorphologicalValidator{}
}

func (v *MorphologicalValidator) Name() string {
	return "morphological"
}

func (v *MorphologicalValidator) Validate(detection models.RawDetection, vctx *Context) []Evidence {
	if vctx.Annotation == nil {
		return nil
	}

	token := vctx.Annotation.TokenAt(vctx.ErrorPosition.Start)
	if token == nil || token.POS == "" {
		return nil
	}

	sig, ok := morphSignatures[FamilyOf(vctx.RuleID)]
	if !ok {
		return nil
	}

	if !containsString(sig.pos, token.POS) {
		return []Evidence{{
			Type:            EvidenceNegative,
			Confidence:      0.30,
			Description:     fmt.Sprintf("flagged token %q is %s, outside the rule's morphological signature", token.Text, token.POS),
			SourceValidator: v.Name(),
		}}
	}

	conf := 0.70
	if sig.lemmaDiffers && token.Lemma != "" && token.Lemma != token.Text {
		conf = 0.80
	}

	return []Evidence{{
		Type:            EvidencePositive,
		Confidence:      conf,
		Description:     fmt.Sprintf("flagged token %q (%s) matches the rule's morphological signature", token.Text, token.POS),
		SourceValidator: v.Name(),
	}}
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
