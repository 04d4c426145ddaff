// Package corpus holds prompt records with metadata and embeddings. It
// supports insertion, metadata-filtered similarity search with constraint
// relaxation, full enumeration, and lossless JSON export/import.
package corpus

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/domain"
)

// Relaxation tiers, tightest first. Grade tier is relaxed last: it encodes
// word-count appropriateness.
const (
	RelaxNone       = iota // grade + level + genre/topic
	RelaxGenreTopic        // grade + level
	RelaxLevel             // grade only
	RelaxGrade             // unconstrained
	relaxTierCount
)

// Match is one search hit with its similarity score and the relaxation
// tier that produced it (RelaxNone means every constraint matched).
type Match struct {
	Record     domain.PromptRecord
	Score      float64
	Relaxation int
}

// Corpus is an in-memory prompt store. Reads take a shared lock; mutations
// take an exclusive lock. No lock is held across an embedding call.
type Corpus struct {
	embed  domain.Embedder
	logger *zap.Logger

	mu      sync.RWMutex
	records []domain.PromptRecord
	byID    map[string]int // id -> index into records
	dim     int            // embedding dimensionality, fixed by the first record
}

// New creates an empty corpus. The embedder vectorizes records at insertion
// and queries at search time.
func New(embed domain.Embedder, logger *zap.Logger) *Corpus {
	return &Corpus{
		embed:  embed,
		logger: logger,
		byID:   make(map[string]int),
	}
}

// Insert validates, vectorizes, and appends a record. Duplicate identifiers
// are rejected with domain.ErrDuplicateID and leave the corpus unchanged.
func (c *Corpus) Insert(ctx context.Context, rec domain.PromptRecord) error {
	if err := validateRecord(&rec); err != nil {
		return err
	}

	c.mu.RLock()
	_, dup := c.byID[rec.ID]
	dim := c.dim
	c.mu.RUnlock()
	if dup {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateID, rec.ID)
	}

	if len(rec.Embedding) == 0 {
		res, err := c.embed.Embed(ctx, rec.EmbeddingText())
		if err != nil {
			return fmt.Errorf("embed record %q: %w", rec.ID, err)
		}
		rec.Embedding = res.Embedding
	}
	if dim > 0 && len(rec.Embedding) != dim {
		return fmt.Errorf("%w: record %q has %d, corpus has %d",
			domain.ErrVectorDimMismatch, rec.ID, len(rec.Embedding), dim)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check under the write lock: another writer may have won the race.
	if _, ok := c.byID[rec.ID]; ok {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateID, rec.ID)
	}
	if c.dim > 0 && len(rec.Embedding) != c.dim {
		return fmt.Errorf("%w: record %q has %d, corpus has %d",
			domain.ErrVectorDimMismatch, rec.ID, len(rec.Embedding), c.dim)
	}
	if c.dim == 0 {
		c.dim = len(rec.Embedding)
	}
	c.byID[rec.ID] = len(c.records)
	c.records = append(c.records, rec)
	return nil
}

// Search runs the two-stage filter-then-rank query. Stage 1 retains records
// matching the criteria exactly; if nothing survives, constraints relax in
// order genre/topic, proficiency level, grade tier. Stage 2 ranks survivors
// by cosine similarity to queryText, descending, ties broken by lowest
// identifier. Returns at most k matches (k<=0 means 1); an empty slice
// means the corpus is exhausted and the caller decides the fallback.
func (c *Corpus) Search(ctx context.Context, criteria domain.EvaluationCriteria, queryText string, k int) ([]Match, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 1
	}

	// Vectorize outside any lock. A provider failure degrades to unranked
	// filtering rather than failing the search.
	var queryVec []float32
	if queryText != "" {
		res, err := c.embed.Embed(ctx, queryText)
		if err != nil {
			c.logger.Warn("query embedding failed, returning unranked matches", zap.Error(err))
		} else {
			queryVec = res.Embedding
		}
	}

	c.mu.RLock()
	matches, tier := c.filterLocked(criteria)
	c.mu.RUnlock()

	if len(matches) == 0 {
		return nil, nil
	}

	rankMatches(matches, queryVec)
	for i := range matches {
		matches[i].Relaxation = tier
	}
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// filterLocked returns the survivors of the tightest non-empty relaxation
// tier. Caller holds at least a read lock.
func (c *Corpus) filterLocked(criteria domain.EvaluationCriteria) ([]Match, int) {
	for tier := RelaxNone; tier < relaxTierCount; tier++ {
		var survivors []Match
		for i := range c.records {
			if recordMatches(&c.records[i], criteria, tier) {
				survivors = append(survivors, Match{Record: c.records[i]})
			}
		}
		if len(survivors) > 0 {
			return survivors, tier
		}
	}
	return nil, relaxTierCount
}

// recordMatches applies the criteria at the given relaxation tier.
// Grade-tier matching is exact equality, never range-based.
func recordMatches(rec *domain.PromptRecord, criteria domain.EvaluationCriteria, tier int) bool {
	if tier < RelaxGrade && rec.Grade != criteria.Grade {
		return false
	}
	if tier < RelaxLevel && rec.Level != criteria.Level {
		return false
	}
	if tier < RelaxGenreTopic {
		if criteria.Genre != "" && rec.Genre != criteria.Genre {
			return false
		}
		if criteria.Topic != "" && rec.Topic != criteria.Topic {
			return false
		}
	}
	return true
}

// rankMatches orders by similarity descending when a query vector is
// present, with lowest identifier winning ties; otherwise by identifier.
func rankMatches(matches []Match, queryVec []float32) {
	if queryVec != nil {
		for i := range matches {
			matches[i].Score = CosineSimilarity(queryVec, matches[i].Record.Embedding)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})
}

// All returns every record in insertion order.
func (c *Corpus) All() []domain.PromptRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.PromptRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Get returns the record with the given identifier.
func (c *Corpus) Get(id string) (domain.PromptRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.byID[id]
	if !ok {
		return domain.PromptRecord{}, false
	}
	return c.records[idx], true
}

// Count returns the current record count.
func (c *Corpus) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// validateRecord checks required fields and derives word bounds from the
// grade tier when unset.
func validateRecord(rec *domain.PromptRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidRecord)
	}
	if rec.Title == "" || rec.Prompt == "" {
		return fmt.Errorf("%w: record %q needs title and prompt text", domain.ErrInvalidRecord, rec.ID)
	}
	if !rec.Grade.IsValid() {
		return fmt.Errorf("%w: record %q has unknown grade tier %q", domain.ErrInvalidRecord, rec.ID, rec.Grade)
	}
	if !rec.Level.IsValid() {
		return fmt.Errorf("%w: record %q has unknown proficiency %q", domain.ErrInvalidRecord, rec.ID, rec.Level)
	}
	if rec.MinWords == 0 && rec.MaxWords == 0 {
		rec.MinWords, rec.MaxWords = rec.Grade.WordBounds()
	}
	return nil
}
