package feedback

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/todmy/style-analyzer/internal/reliability"
)

var (
	ErrMissingRuleID = errors.New("feedback requires a rule id")
)

// Reason categories a reviewer can attach to negative feedback.
const (
	ReasonFalsePositive   = "false_positive"
	ReasonWrongSuggestion = "wrong_suggestion"
	ReasonNotApplicable   = "not_applicable"
	ReasonOther           = "other"
)

// Record is one reviewer verdict on a surfaced error.
type Record struct {
	ID        string    `json:"id"`
	RuleID    string    `json:"rule_id"`
	SessionID string    `json:"session_id,omitempty"`
	Helpful   bool      `json:"helpful"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists feedback records. The memory implementation is the
// default; Postgres serves as the durable collaborator.
type Store interface {
	// Add stores a feedback record
	Add(ctx context.Context, record *Record) error

	// Aggregate returns helpful / not-helpful counts per rule
	Aggregate(ctx context.Context) ([]reliability.RuleFeedback, error)
}

// MemoryStore keeps feedback in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates an empty in-memory feedback store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(ctx context.Context, record *Record) error {
	if record.RuleID == "" {
		return ErrMissingRuleID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *record)
	return nil
}

func (s *MemoryStore) Aggregate(ctx context.Context) ([]reliability.RuleFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byRule := make(map[string]*reliability.RuleFeedback)
	for _, r := range s.records {
		agg, ok := byRule[r.RuleID]
		if !ok {
			agg = &reliability.RuleFeedback{RuleID: r.RuleID}
			byRule[r.RuleID] = agg
		}
		if r.Helpful {
			agg.Helpful++
		} else {
			agg.NotHelpful++
		}
	}

	out := make([]reliability.RuleFeedback, 0, len(byRule))
	for _, agg := range byRule {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RuleID < out[j].RuleID
	})
	return out, nil
}
