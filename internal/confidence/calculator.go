package confidence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/todmy/style-analyzer/internal/config"
	"github.com/todmy/style-analyzer/pkg/models"
)

// Content modifiers by content type. Unlisted types get no adjustment.
var contentModifiers = map[string]float64{
	"technical": 0.90,
	"legal":     0.95,
	"marketing": 1.00,
	"narrative": 1.00,
}

// Mixed-content documents get an extra penalty unless the safeguard holds.
const (
	mixedContentModifier  = 0.80
	mixedContentSafeguard = 0.85
)

// Signals carries everything the calculator blends for one detection.
type Signals struct {
	RuleID          string
	SessionID       string
	EvidenceScore   float64
	HasEvidence     bool
	PositiveSum     float64
	NegativeSum     float64
	ContentType     string
	MixedContent    bool
	RuleReliability float64
}

// Calculator blends evidence, model signals, content modifiers, and rule
// reliability into a final confidence plus its provenance. Results are
// cached per (signals, session) so repeated evaluation within a session is
// stable; the cache key includes the session id, so a new session may
// re-evaluate.
type Calculator struct {
	cfg config.Config

	mu    sync.Mutex
	cache map[string]cached
}

type cached struct {
	provenance models.Provenance
	final      float64
}

// NewCalculator creates a calculator over validated configuration.
func NewCalculator(cfg config.Config) *Calculator {
	return &Calculator{
		cfg:   cfg,
		cache: make(map[string]cached),
	}
}

// Compute returns the final confidence in [0, 1] and its provenance.
// Identical signals produce bit-identical output.
func (c *Calculator) Compute(sig Signals) (models.Provenance, float64) {
	key := cacheKey(sig)

	c.mu.Lock()
	if hit, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return hit.provenance, hit.final
	}
	c.mu.Unlock()

	prov, final := c.compute(sig)

	c.mu.Lock()
	c.cache[key] = cached{provenance: prov, final: final}
	c.mu.Unlock()

	return prov, final
}

func (c *Calculator) compute(sig Signals) (models.Provenance, float64) {
	evidenceWeight, modelWeight := blendWeights(sig)
	modelSignal := clamp01(0.5 + 0.5*(sig.PositiveSum-sig.NegativeSum))

	blended := evidenceWeight*sig.EvidenceScore + modelWeight*modelSignal

	modifier := c.contentModifier(sig)
	final := clamp01(blended * modifier * sig.RuleReliability)

	prov := models.Provenance{
		EvidenceWeight:  evidenceWeight,
		ModelWeight:     modelWeight,
		RuleReliability: sig.RuleReliability,
		ContentModifier: modifier,
	}

	if c.cfg.Flags.SoftFloors {
		if floor, ok := c.cfg.SoftFloors[sig.RuleID]; ok {
			if sig.HasEvidence && sig.EvidenceScore >= floor.EvidenceMin && final < floor.Floor {
				final = floor.Floor
				prov.FloorGuardTriggered = true
			}
		}
	}

	return prov, final
}

// blendWeights normalizes evidence and model weights to sum to 1, shifting
// toward evidence as the evidence score rises above 0.7. Detections without
// an evidence score lean entirely on the model signal.
func blendWeights(sig Signals) (evidenceWeight, modelWeight float64) {
	if !sig.HasEvidence {
		return 0, 1
	}

	evidenceWeight = 0.60
	if sig.EvidenceScore > 0.70 {
		ramp := (sig.EvidenceScore - 0.70) / 0.30
		if ramp > 1 {
			ramp = 1
		}
		evidenceWeight = 0.60 + 0.30*ramp
	}
	return evidenceWeight, 1 - evidenceWeight
}

// contentModifier derives the content penalty. The mixed-content safeguard
// skips the penalty entirely when evidence is strong.
func (c *Calculator) contentModifier(sig Signals) float64 {
	modifier := 1.0
	if m, ok := contentModifiers[sig.ContentType]; ok {
		modifier = m
	}

	if sig.MixedContent {
		if sig.HasEvidence && sig.EvidenceScore >= mixedContentSafeguard {
			// Strong evidence overrides the mixed-content penalty.
			return 1.0
		}
		modifier *= mixedContentModifier
	}

	return modifier
}

func cacheKey(sig Signals) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%v|%v|%v|%v|%s|%v|%v",
		sig.RuleID, sig.SessionID, sig.EvidenceScore, sig.HasEvidence,
		sig.PositiveSum, sig.NegativeSum, sig.ContentType, sig.MixedContent,
		sig.RuleReliability,
	)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
