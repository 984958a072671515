package validation

import (
	"fmt"
	"strings"

	"github.com/todmy/style-analyzer/pkg/models"
)

// Markers whose presence near a flagged span means the text is talking
// about a term rather than using it.
var legacyMarkers = []string{
	"legacy",
	"deprecated",
	"migrating",
	"previously called",
	"historically",
	"obsolete",
}

const (
	quotationConfidence  = 0.85
	legacyConfidence     = 0.90
	deprecatedConfidence = 0.95
	backtickConfidence   = 0.90
	codeFenceConfidence  = 0.85

	// Each indicator past the first adds a small bonus to the strongest
	// finding, capped at 1.0.
	multiIndicatorBonus = 0.05

	// How far around the flagged span legacy markers are considered.
	legacyWindow = 40
)

// ContextValidator recognises negative-evidence patterns: quotation,
// legacy/deprecated prose, and code spans. It only ever emits negative
// evidence; strong findings let the pipeline terminate early.
type ContextValidator struct{}

// NewContextValidator creates a context validator
func NewContextValidator() *ContextValidator {
	return &ContextValidator{}
}

func (v *ContextValidator) Name() string {
	return "context"
}

func (v *ContextValidator) Validate(detection models.RawDetection, vctx *Context) []Evidence {
	var findings []Evidence

	if enclosedByQuotes(vctx.Sentence, vctx.ErrorPosition) {
		findings = append(findings, Evidence{
			Type:            EvidenceNegativeContext,
			Confidence:      quotationConfidence,
			Description:     "flagged span is enclosed by balanced quotation marks",
			SourceValidator: v.Name(),
		})
	}

	if marker, conf := legacyMarkerNear(vctx.Sentence, vctx.ErrorPosition); marker != "" {
		findings = append(findings, Evidence{
			Type:            EvidenceNegativeContext,
			Confidence:      conf,
			Description:     fmt.Sprintf("nearby %q marks the flagged term as historical usage", marker),
			SourceValidator: v.Name(),
		})
	}

	if desc, conf := codeIndicator(detection, vctx); desc != "" {
		findings = append(findings, Evidence{
			Type:            EvidenceNegativeContext,
			Confidence:      conf,
			Description:     desc,
			SourceValidator: v.Name(),
		})
	}

	return combineFindings(findings)
}

// combineFindings applies the additive rule: the strongest finding gains a
// small bonus per extra indicator, capped at 1.0. Findings stay distinct.
func combineFindings(findings []Evidence) []Evidence {
	if len(findings) < 2 {
		return findings
	}

	strongest := 0
	for i := range findings {
		if findings[i].Confidence > findings[strongest].Confidence {
			strongest = i
		}
	}

	boosted := findings[strongest].Confidence + multiIndicatorBonus*float64(len(findings)-1)
	if boosted > 1.0 {
		boosted = 1.0
	}
	findings[strongest].Confidence = boosted

	return findings
}

// enclosedByQuotes reports whether the span sits inside a balanced pair of
// quotation marks within the sentence.
func enclosedByQuotes(sentence string, pos models.Span) bool {
	if pos.Start < 0 || pos.End > len(sentence) || pos.Start >= pos.End {
		return false
	}

	for _, pair := range [][2]rune{{'"', '"'}, {'“', '”'}, {'‘', '’'}} {
		open := strings.LastIndexFunc(sentence[:pos.Start], func(r rune) bool { return r == pair[0] })
		if open < 0 {
			continue
		}
		closing := strings.IndexFunc(sentence[pos.End:], func(r rune) bool { return r == pair[1] })
		if closing < 0 {
			continue
		}
		// For symmetric quote characters, require an even total so the
		// found pair is actually open/close rather than close/open.
		if pair[0] == pair[1] && strings.Count(sentence, string(pair[0]))%2 != 0 {
			continue
		}
		return true
	}
	return false
}

// legacyMarkerNear returns the first legacy marker within the window around
// the span, with its confidence.
func legacyMarkerNear(sentence string, pos models.Span) (string, float64) {
	start := pos.Start - legacyWindow
	if start < 0 {
		start = 0
	}
	end := pos.End + legacyWindow
	if end > len(sentence) {
		end = len(sentence)
	}
	window := strings.ToLower(sentence[start:end])

	for _, marker := range legacyMarkers {
		if strings.Contains(window, marker) {
			if marker == "deprecated" || marker == "obsolete" {
				return marker, deprecatedConfidence
			}
			return marker, legacyConfidence
		}
	}
	return "", 0
}

// codeIndicator detects inline backticks around the span or a preceding
// code fence recorded by the rule engine in the detection's extra context.
func codeIndicator(detection models.RawDetection, vctx *Context) (string, float64) {
	sentence := vctx.Sentence
	pos := vctx.ErrorPosition

	if pos.Start >= 0 && pos.End <= len(sentence) && pos.Start < pos.End {
		before := strings.Contains(sentence[:pos.Start], "`")
		after := strings.Contains(sentence[pos.End:], "`")
		if before && after {
			return "flagged span sits inside inline code backticks", backtickConfidence
		}
	}

	if fence, ok := detection.ExtraContext["preceding_code_fence"].(bool); ok && fence {
		return "a code fence precedes the flagged span in the containing block", codeFenceConfidence
	}

	return "", 0
}
