package nlp

// Token is a single annotated token within a sentence. All annotations are
// produced by the upstream NLP service; the validation core never computes
// them itself.
type Token struct {
	Text      string `json:"text"`
	Lemma     string `json:"lemma"`
	POS       string `json:"pos"`
	DepHead   int    `json:"dep_head"`
	DepLabel  string `json:"dep_label"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
}

// Annotation is the read-only NLP view of one sentence.
type Annotation struct {
	Sentence string  `json:"sentence"`
	Tokens   []Token `json:"tokens"`
}

// TokenAt returns the token covering the given character offset, or nil.
func (a *Annotation) TokenAt(offset int) *Token {
	for i := range a.Tokens {
		t := &a.Tokens[i]
		if offset >= t.CharStart && offset < t.CharEnd {
			return t
		}
	}
	return nil
}

// TokensInWindow returns the tokens whose spans intersect [start, end).
func (a *Annotation) TokensInWindow(start, end int) []Token {
	var out []Token
	for _, t := range a.Tokens {
		if t.CharStart < end && start < t.CharEnd {
			out = append(out, t)
		}
	}
	return out
}
