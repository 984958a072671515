package validation

import "strings"

// Family is a closed enumeration of rule families. Unrecognized rule ids
// fall into FamilyGeneral.
type Family string

const (
	FamilyTerminology Family = "terminology"
	FamilyGrammar     Family = "grammar"
	FamilyPunctuation Family = "punctuation"
	FamilyStructure   Family = "structure"
	FamilyTone        Family = "tone"
	FamilyGeneral     Family = "general"
)

var familyByRule = map[string]Family{
	"inclusive_language":  FamilyTerminology,
	"word_usage":          FamilyTerminology,
	"product_names":       FamilyTerminology,
	"abbreviations":       FamilyTerminology,
	"passive_voice":       FamilyGrammar,
	"verb_form":           FamilyGrammar,
	"subject_verb":        FamilyGrammar,
	"comma_splice":        FamilyPunctuation,
	"serial_comma":        FamilyPunctuation,
	"heading_style":       FamilyStructure,
	"list_parallelism":    FamilyStructure,
	"sentence_length":     FamilyStructure,
	"anthropomorphism":    FamilyTone,
	"first_person_plural": FamilyTone,
}

// FamilyOf maps a rule id to its family. Prefixed rule ids (for example
// "terminology.word_usage") resolve on the prefix first.
func FamilyOf(ruleID string) Family {
	if f, ok := familyByRule[ruleID]; ok {
		return f
	}
	if prefix, _, found := strings.Cut(ruleID, "."); found {
		switch Family(prefix) {
		case FamilyTerminology, FamilyGrammar, FamilyPunctuation,
			FamilyStructure, FamilyTone:
			return Family(prefix)
		}
	}
	return FamilyGeneral
}
