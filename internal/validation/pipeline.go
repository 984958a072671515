package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/todmy/style-analyzer/internal/confidence"
	"github.com/todmy/style-analyzer/internal/config"
	"github.com/todmy/style-analyzer/internal/metrics"
	"github.com/todmy/style-analyzer/internal/nlp"
	"github.com/todmy/style-analyzer/internal/reliability"
	"github.com/todmy/style-analyzer/pkg/models"
)

// negativeVetoSum is the cumulative negative evidence that both blocks the
// evidence shortcut and forces rejection in consensus.
const negativeVetoSum = 0.85

// shortcutMinConfidence is the lowest confidence a shortcut accept carries.
const shortcutMinConfidence = 0.75

// PipelineConfig holds pipeline tuning beyond the shared threshold contract.
type PipelineConfig struct {
	// ConsensusMargin is how far positive evidence must outweigh negative
	// before consensus accepts.
	ConsensusMargin float64
}

// DefaultPipelineConfig returns default pipeline configuration
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ConsensusMargin: 0.10,
	}
}

// Pipeline orchestrates the validators over raw detections and produces one
// Result per valid detection. It never mutates its inputs.
type Pipeline struct {
	validators []Validator
	calculator *confidence.Calculator
	table      *reliability.Table
	cfg        config.Config
	pcfg       PipelineConfig
	sink       *metrics.Sink
	annotator  nlp.Annotator
	logger     *slog.Logger
}

// NewPipeline creates a validation pipeline. The context validator runs
// first so decisive negative findings can stop the remaining passes.
func NewPipeline(
	cfg config.Config,
	pcfg PipelineConfig,
	table *reliability.Table,
	calculator *confidence.Calculator,
	annotator nlp.Annotator,
	sink *metrics.Sink,
	logger *slog.Logger,
) *Pipeline {
	if pcfg.ConsensusMargin <= 0 {
		pcfg.ConsensusMargin = DefaultPipelineConfig().ConsensusMargin
	}
	if logger == nil {
		logger = slog.Default()
	}

	validators := []Validator{}
	if cfg.Flags.NegativeGuards {
		validators = append(validators, NewContextValidator())
	}
	validators = append(validators, NewMorphologicalValidator(), NewSyntacticValidator())

	return &Pipeline{
		validators: validators,
		calculator: calculator,
		table:      table,
		cfg:        cfg,
		pcfg:       pcfg,
		sink:       sink,
		annotator:  annotator,
		logger:     logger,
	}
}

// Process validates detections in input order. Invalid detections are
// dropped and counted; once the context deadline expires the remaining
// detections come back UNCERTAIN.
func (p *Pipeline) Process(ctx context.Context, detections []models.RawDetection, doc models.DocumentContext) []Result {
	results := make([]Result, 0, len(detections))

	for _, detection := range detections {
		if err := checkDetection(detection); err != nil {
			p.sink.Inc(metrics.CounterInvalidDetections)
			p.logger.Warn("dropping invalid detection",
				"rule_id", detection.RuleID,
				"line", detection.LineNumber,
				"error", err,
			)
			continue
		}

		if ctx.Err() != nil {
			p.sink.Inc(metrics.CounterDeadlineUncertain)
			results = append(results, Result{
				Detection: detection,
				Decision:  DecisionUncertain,
				Reasoning: "deadline exceeded before validation",
			})
			continue
		}

		results = append(results, p.processOne(ctx, detection, doc))
	}

	return results
}

func (p *Pipeline) processOne(ctx context.Context, detection models.RawDetection, doc models.DocumentContext) Result {
	vctx := p.buildContext(ctx, detection, doc)

	var (
		evidence []Evidence
		failures []string
	)

	for _, v := range p.validators {
		// Cancellation is checked only at validator boundaries.
		if ctx.Err() != nil {
			p.sink.Inc(metrics.CounterDeadlineUncertain)
			return Result{
				Detection: detection,
				Decision:  DecisionUncertain,
				Evidence:  evidence,
				Reasoning: "deadline exceeded during validation",
			}
		}

		found, err := p.runValidator(v, detection, vctx)
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		evidence = append(evidence, found...)

		if p.cfg.Flags.NegativeEarlyTermination {
			if decisive, ok := decisiveNegative(found, p.cfg.Thresholds.DecisiveNegative); ok {
				p.sink.Inc(metrics.CounterEarlyTerminated)
				return Result{
					Detection:       detection,
					Decision:        DecisionReject,
					ConfidenceScore: decisive.Confidence,
					Evidence:        evidence,
					Reasoning:       fmt.Sprintf("decisive negative evidence: %s", decisive.Description),
					Metadata:        Metadata{EarlyTerminated: true},
				}
			}
		}
	}

	return p.decide(detection, vctx, evidence, failures)
}

// runValidator invokes one validator, converting a panic into a recorded
// failure so one broken pass never takes the pipeline down.
func (p *Pipeline) runValidator(v Validator, detection models.RawDetection, vctx *Context) (found []Evidence, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator %s failed: %v", v.Name(), r)
			found = nil
			p.logger.Error("validator panicked", "validator", v.Name(), "rule_id", detection.RuleID, "panic", r)
		}
	}()

	return v.Validate(detection, vctx), nil
}

func (p *Pipeline) decide(detection models.RawDetection, vctx *Context, evidence []Evidence, failures []string) Result {
	evidenceScore, hasEvidence := detection.Evidence()
	ruleReliability := p.table.Reliability(detection.RuleID)
	posSum, negSum := evidenceSums(evidence)

	// Evidence-first shortcut: a strong detection from a reliable rule
	// skips consensus unless negative evidence piles up.
	if p.cfg.Flags.EvidenceShortcut &&
		hasEvidence &&
		evidenceScore >= p.cfg.Thresholds.EvidenceShortcutMin &&
		ruleReliability >= p.cfg.Thresholds.ReliabilityShortcutMin &&
		negSum < negativeVetoSum {

		prov, computed := p.compute(detection, vctx, posSum, negSum, ruleReliability)
		score := computed
		if score < shortcutMinConfidence {
			score = shortcutMinConfidence
		}

		p.sink.Inc(metrics.CounterShortcutApplied)
		return Result{
			Detection:       detection,
			Decision:        DecisionAccept,
			ConfidenceScore: score,
			Evidence:        evidence,
			Reasoning:       reasoning("accepted by evidence-first shortcut", failures),
			Metadata:        Metadata{ShortcutApplied: true, Provenance: prov},
		}
	}

	prov, final := p.compute(detection, vctx, posSum, negSum, ruleReliability)
	meta := Metadata{Provenance: prov}

	switch {
	case negSum >= negativeVetoSum:
		return Result{
			Detection:       detection,
			Decision:        DecisionReject,
			ConfidenceScore: final,
			Evidence:        evidence,
			Reasoning:       reasoning(fmt.Sprintf("cumulative negative evidence %.2f vetoes the detection", negSum), failures),
			Metadata:        meta,
		}

	case final >= p.cfg.Thresholds.UniversalHardThreshold && posSum > negSum+p.pcfg.ConsensusMargin:
		return Result{
			Detection:       detection,
			Decision:        DecisionAccept,
			ConfidenceScore: final,
			Evidence:        evidence,
			Reasoning:       reasoning("accepted by validator consensus", failures),
			Metadata:        meta,
		}

	case final < p.cfg.Thresholds.UniversalHardThreshold && posSum == 0:
		return Result{
			Detection:       detection,
			Decision:        DecisionReject,
			ConfidenceScore: final,
			Evidence:        evidence,
			Reasoning:       reasoning("below hard threshold with no supporting evidence", failures),
			Metadata:        meta,
		}

	default:
		return Result{
			Detection:       detection,
			Decision:        DecisionUncertain,
			ConfidenceScore: final,
			Evidence:        evidence,
			Reasoning:       reasoning("validator consensus inconclusive", failures),
			Metadata:        meta,
		}
	}
}

func (p *Pipeline) compute(detection models.RawDetection, vctx *Context, posSum, negSum, ruleReliability float64) (models.Provenance, float64) {
	evidenceScore, hasEvidence := detection.Evidence()

	prov, final := p.calculator.Compute(confidence.Signals{
		RuleID:          detection.RuleID,
		SessionID:       vctx.SessionID,
		EvidenceScore:   evidenceScore,
		HasEvidence:     hasEvidence,
		PositiveSum:     posSum,
		NegativeSum:     negSum,
		ContentType:     vctx.ContentType,
		MixedContent:    vctx.DomainAnalysis.MixedContentDetected,
		RuleReliability: ruleReliability,
	})

	// The calculator is pure; the pipeline owns the metrics contract, so
	// floor rescues are counted here, once per computed detection.
	if prov.FloorGuardTriggered {
		p.sink.Inc(metrics.CounterFloorTriggered)
	}

	return prov, final
}

func (p *Pipeline) buildContext(ctx context.Context, detection models.RawDetection, doc models.DocumentContext) *Context {
	ann, err := p.annotator.Annotate(ctx, detection.SentenceText)
	if err != nil {
		p.logger.Warn("annotation unavailable", "rule_id", detection.RuleID, "error", err)
		ann = nil
	}

	return &Context{
		RuleID:         detection.RuleID,
		Sentence:       detection.SentenceText,
		ErrorPosition:  detection.Span,
		ContentType:    doc.ContentType,
		DomainAnalysis: doc.DomainAnalysis,
		SessionID:      doc.SessionID,
		EvidenceScore:  detection.EvidenceScore,
		Annotation:     ann,
	}
}

// evidenceSums aggregates evidence weights: positive counts fully,
// contextual at half weight, and both negative types together.
func evidenceSums(evidence []Evidence) (posSum, negSum float64) {
	var pos, neg []float64
	for _, e := range evidence {
		switch e.Type {
		case EvidencePositive:
			pos = append(pos, e.Confidence)
		case EvidenceContextual:
			pos = append(pos, e.Confidence*0.5)
		case EvidenceNegative, EvidenceNegativeContext:
			neg = append(neg, e.Confidence)
		}
	}
	return floats.Sum(pos), floats.Sum(neg)
}

// decisiveNegative returns the strongest negative-context finding at or
// above the threshold.
func decisiveNegative(evidence []Evidence, threshold float64) (Evidence, bool) {
	best := Evidence{}
	found := false
	for _, e := range evidence {
		if e.Type == EvidenceNegativeContext && e.Confidence >= threshold && e.Confidence >= best.Confidence {
			best = e
			found = true
		}
	}
	return best, found
}

func checkDetection(d models.RawDetection) error {
	if d.RuleID == "" {
		return fmt.Errorf("%w: missing rule id", ErrInvalidDetection)
	}
	if ev, ok := d.Evidence(); ok && (ev < 0 || ev > 1) {
		return fmt.Errorf("%w: evidence score %v out of range", ErrInvalidDetection, ev)
	}
	if d.Span.Start < 0 || d.Span.End > len(d.SentenceText) || d.Span.Start >= d.Span.End {
		return fmt.Errorf("%w: span [%d, %d) outside sentence", ErrInvalidDetection, d.Span.Start, d.Span.End)
	}
	return nil
}

func reasoning(base string, failures []string) string {
	if len(failures) == 0 {
		return base
	}
	return base + "; " + strings.Join(failures, "; ")
}
