package nlp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Cache defines the interface for annotation caching
type Cache interface {
	// Get retrieves an annotation from cache
	Get(ctx context.Context, key string) (*Annotation, bool, error)

	// Set stores an annotation in cache
	Set(ctx context.Context, key string, ann *Annotation) error
}

// CacheKey creates a cache key from a sentence
func CacheKey(sentence string) string {
	h := sha256.New()
	h.Write([]byte(sentence))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// MemoryCache is a process-local annotation cache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Annotation
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*Annotation),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*Annotation, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ann, ok := c.entries[key]
	return ann, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, ann *Annotation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ann
	return nil
}

// CachedAnnotator wraps an Annotator with caching
type CachedAnnotator struct {
	annotator Annotator
	cache     Cache
}

// NewCachedAnnotator creates a new cached annotator
func NewCachedAnnotator(annotator Annotator, cache Cache) *CachedAnnotator {
	return &CachedAnnotator{
		annotator: annotator,
		cache:     cache,
	}
}

// Annotate returns the cached annotation when available, fetching and
// caching it otherwise. Cache errors are ignored; a failed cache never
// blocks annotation.
func (c *CachedAnnotator) Annotate(ctx context.Context, sentence string) (*Annotation, error) {
	key := CacheKey(sentence)

	if ann, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return ann, nil
	}

	ann, err := c.annotator.Annotate(ctx, sentence)
	if err != nil {
		return nil, err
	}

	_ = c.cache.Set(ctx, key, ann)
	return ann, nil
}

// NoOpCache is a cache that doesn't cache anything (for testing)
type NoOpCache struct{}

func (c *NoOpCache) Get(ctx context.Context, key string) (*Annotation, bool, error) {
	return nil, false, nil
}

func (c *NoOpCache) Set(ctx context.Context, key string, ann *Annotation) error {
	return nil
}

// StaticAnnotator serves pre-built annotations keyed by sentence text. Used
// in tests and anywhere the upstream service is unavailable.
type StaticAnnotator struct {
	annotations map[string]*Annotation
}

// NewStaticAnnotator creates an annotator over a fixed annotation set
func NewStaticAnnotator(annotations map[string]*Annotation) *StaticAnnotator {
	return &StaticAnnotator{annotations: annotations}
}

func (s *StaticAnnotator) Annotate(ctx context.Context, sentence string) (*Annotation, error) {
	if ann, ok := s.annotations[sentence]; ok {
		return ann, nil
	}
	// Fall back to a whitespace tokenization so validators still see offsets.
	return WhitespaceAnnotation(sentence), nil
}

// WhitespaceAnnotation builds a minimal annotation by whitespace splitting.
// Lemmas are lowercased surface forms; POS and dependency fields are empty.
func WhitespaceAnnotation(sentence string) *Annotation {
	ann := &Annotation{Sentence: sentence}

	start := -1
	for i, r := range sentence {
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			if start >= 0 {
				ann.Tokens = append(ann.Tokens, newToken(sentence, start, i))
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		ann.Tokens = append(ann.Tokens, newToken(sentence, start, len(sentence)))
	}

	return ann
}

func newToken(sentence string, start, end int) Token {
	text := sentence[start:end]
	return Token{
		Text:      text,
		Lemma:     strings.ToLower(text),
		CharStart: start,
		CharEnd:   end,
	}
}
