package consolidation

import (
	"sort"

	"github.com/todmy/style-analyzer/internal/config"
	"github.com/todmy/style-analyzer/internal/metrics"
	"github.com/todmy/style-analyzer/internal/validation"
	"github.com/todmy/style-analyzer/pkg/models"
)

// strongEvidenceMin marks group members whose message must survive merging.
const strongEvidenceMin = 0.90

// mergedMinConfidence is the floor a strong-evidence merge carries.
const mergedMinConfidence = 0.75

// ConsolidatorConfig holds consolidation tuning.
type ConsolidatorConfig struct {
	// AdjacencyTolerance is the maximum character gap between spans that
	// still groups two detections on the same line.
	AdjacencyTolerance int
}

// DefaultConsolidatorConfig returns default consolidation configuration
func DefaultConsolidatorConfig() ConsolidatorConfig {
	return ConsolidatorConfig{
		AdjacencyTolerance: 2,
	}
}

// Consolidator deduplicates and merges accepted validation results into the
// surfaced error list.
type Consolidator struct {
	cfg  config.Config
	ccfg ConsolidatorConfig
	sink *metrics.Sink
}

// NewConsolidator creates a consolidator over validated configuration.
func NewConsolidator(cfg config.Config, ccfg ConsolidatorConfig, sink *metrics.Sink) *Consolidator {
	if ccfg.AdjacencyTolerance < 0 {
		ccfg.AdjacencyTolerance = DefaultConsolidatorConfig().AdjacencyTolerance
	}
	return &Consolidator{cfg: cfg, ccfg: ccfg, sink: sink}
}

// Consolidate turns accepted results into surfaced errors: group, merge,
// apply soft floors, then the universal hard threshold. Input order is
// preserved through each group's primary member.
func (c *Consolidator) Consolidate(results []validation.Result) []models.Error {
	accepted := make([]models.Error, 0, len(results))
	for _, r := range results {
		if r.Decision != validation.DecisionAccept {
			continue
		}
		accepted = append(accepted, toError(r))
	}

	merged := c.mergeGroups(c.group(accepted))

	out := make([]models.Error, 0, len(merged))
	for _, e := range merged {
		e = c.applySoftFloor(e)
		if e.ConfidenceScore < c.cfg.Thresholds.UniversalHardThreshold {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ConsolidateErrors re-runs grouping and thresholds over already surfaced
// errors. Consolidating consolidated output is a no-op.
func (c *Consolidator) ConsolidateErrors(errors []models.Error) []models.Error {
	merged := c.mergeGroups(c.group(errors))

	out := make([]models.Error, 0, len(merged))
	for _, e := range merged {
		e = c.applySoftFloor(e)
		if e.ConfidenceScore < c.cfg.Thresholds.UniversalHardThreshold {
			continue
		}
		out = append(out, e)
	}
	return out
}

type group struct {
	// firstIndex is the input position of the earliest member, used to
	// keep emission in input order.
	firstIndex int
	members    []models.Error
}

// group collects errors that share a rule family on the same line with
// overlapping or near-adjacent spans.
func (c *Consolidator) group(errors []models.Error) []group {
	var groups []group

	for i, e := range errors {
		placed := false
		for gi := range groups {
			if c.belongs(&groups[gi], e) {
				groups[gi].members = append(groups[gi].members, e)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, group{firstIndex: i, members: []models.Error{e}})
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].firstIndex < groups[j].firstIndex
	})
	return groups
}

func (c *Consolidator) belongs(g *group, e models.Error) bool {
	for _, m := range g.members {
		if m.LineNumber != e.LineNumber {
			continue
		}
		if validation.FamilyOf(m.Type) != validation.FamilyOf(e.Type) {
			continue
		}
		if m.Position.Overlaps(e.Position) || spanGap(m.Position, e.Position) <= c.ccfg.AdjacencyTolerance {
			return true
		}
	}
	return false
}

func (c *Consolidator) mergeGroups(groups []group) []models.Error {
	out := make([]models.Error, 0, len(groups))
	for _, g := range groups {
		if len(g.members) == 1 {
			out = append(out, g.members[0])
			continue
		}
		out = append(out, c.merge(g.members))
	}
	return out
}

// merge combines one group. The primary member is the one with the highest
// evidence score, ties broken by earliest then longest span; its message and
// position survive verbatim.
func (c *Consolidator) merge(members []models.Error) models.Error {
	primary := members[0]
	for _, m := range members[1:] {
		if betterPrimary(m, primary) {
			primary = m
		}
	}

	merged := primary

	for _, m := range members {
		if m.ConfidenceScore > merged.ConfidenceScore {
			merged.ConfidenceScore = m.ConfidenceScore
		}
	}

	if strong := strongSources(members); len(strong) > 0 {
		merged.EvidenceSources = strong
		if merged.ConfidenceScore < mergedMinConfidence {
			merged.ConfidenceScore = mergedMinConfidence
		}
	}

	merged.Suggestions = unionSuggestions(primary, members)

	if merged.ConfidenceScore != primary.ConfidenceScore {
		c.sink.Inc(metrics.CounterConsolidationAdjustments)
	}

	return merged
}

func (c *Consolidator) applySoftFloor(e models.Error) models.Error {
	if !c.cfg.Flags.SoftFloors {
		return e
	}
	floor, ok := c.cfg.SoftFloors[e.Type]
	if !ok {
		return e
	}
	if e.EvidenceScore >= floor.EvidenceMin && e.ConfidenceScore < floor.Floor {
		e.ConfidenceScore = floor.Floor
		e.Provenance.FloorGuardTriggered = true
		c.sink.Inc(metrics.CounterFloorTriggered)
	}
	return e
}

func toError(r validation.Result) models.Error {
	evidenceScore, _ := r.Detection.Evidence()

	e := models.Error{
		Type:            r.Detection.RuleID,
		Message:         r.Detection.Message,
		Suggestions:     append([]string(nil), r.Detection.Suggestions...),
		TextSegment:     r.Detection.TextSegment,
		LineNumber:      r.Detection.LineNumber,
		Position:        r.Detection.Span,
		ConfidenceScore: r.ConfidenceScore,
		Provenance:      r.Metadata.Provenance,
		EvidenceScore:   evidenceScore,
	}
	if evidenceScore >= strongEvidenceMin {
		e.EvidenceSources = []string{r.Detection.RuleID}
	}
	return e
}

func betterPrimary(candidate, current models.Error) bool {
	if candidate.EvidenceScore != current.EvidenceScore {
		return candidate.EvidenceScore > current.EvidenceScore
	}
	if candidate.Position.Start != current.Position.Start {
		return candidate.Position.Start < current.Position.Start
	}
	return candidate.Position.Length() > current.Position.Length()
}

func strongSources(members []models.Error) []string {
	seen := make(map[string]bool)
	for _, m := range members {
		if m.EvidenceScore >= strongEvidenceMin {
			seen[m.Type] = true
		}
		for _, src := range m.EvidenceSources {
			seen[src] = true
		}
	}
	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for src := range seen {
		out = append(out, src)
	}
	sort.Strings(out)
	return out
}

func unionSuggestions(primary models.Error, members []models.Error) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(suggestions []string) {
		for _, s := range suggestions {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	add(primary.Suggestions)
	for _, m := range members {
		add(m.Suggestions)
	}
	return out
}

// spanGap returns the character gap between two non-overlapping spans, or 0.
func spanGap(a, b models.Span) int {
	if a.Overlaps(b) {
		return 0
	}
	if a.End <= b.Start {
		return b.Start - a.End
	}
	return a.Start - b.End
}
