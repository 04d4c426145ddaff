package corpus

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls int
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vec
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func testRecord(id string) domain.PromptRecord {
	return domain.PromptRecord{
		ID:     id,
		Title:  "My Family",
		Prompt: "Write about your family.",
		Grade:  domain.TierPrimary,
		Level:  domain.LevelBeginner,
		Genre:  "narrative",
		Topic:  "family",
	}
}

func newTestCorpus(embed domain.Embedder) *Corpus {
	return New(embed, zap.NewNop())
}

// --- Tests ---

func TestInsert(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	c := newTestCorpus(embed)

	for _, id := range []string{"p1", "p2", "p3"} {
		if err := c.Insert(context.Background(), testRecord(id)); err != nil {
			t.Fatalf("Insert(%s): %v", id, err)
		}
	}
	if c.Count() != 3 {
		t.Errorf("Count = %d, want 3", c.Count())
	}
	if embed.calls != 3 {
		t.Errorf("embedder called %d times, want 3", embed.calls)
	}

	rec, ok := c.Get("p2")
	if !ok {
		t.Fatal("Get(p2) not found")
	}
	if len(rec.Embedding) != 3 {
		t.Errorf("stored embedding has %d dims, want 3", len(rec.Embedding))
	}
	// Word bounds derived from the grade tier.
	if rec.MinWords != 30 || rec.MaxWords != 100 {
		t.Errorf("word bounds = %d-%d, want 30-100", rec.MinWords, rec.MaxWords)
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1, 0}})

	if err := c.Insert(context.Background(), testRecord("p1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := c.Insert(context.Background(), testRecord("p1"))
	if !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("Count = %d after rejected duplicate, want 1", c.Count())
	}
}

func TestInsert_DimensionMismatch(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1, 0, 0}})

	if err := c.Insert(context.Background(), testRecord("p1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	rec := testRecord("p2")
	rec.Embedding = []float32{1, 0}
	err := c.Insert(context.Background(), rec)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("Count = %d, want 1", c.Count())
	}
}

func TestInsert_InvalidRecord(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1}})

	rec := testRecord("p1")
	rec.Title = ""
	if err := c.Insert(context.Background(), rec); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("missing title: expected ErrInvalidRecord, got %v", err)
	}

	rec = testRecord("p2")
	rec.Grade = "kindergarten"
	if err := c.Insert(context.Background(), rec); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("bad grade: expected ErrInvalidRecord, got %v", err)
	}
}

func TestSearch_ExactMatch(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1, 0}})
	if err := c.Insert(context.Background(), testRecord("p1")); err != nil {
		t.Fatal(err)
	}

	criteria := domain.EvaluationCriteria{
		Grade: domain.TierPrimary,
		Level: domain.LevelBeginner,
		Genre: "narrative",
		Topic: "family",
	}
	matches, err := c.Search(context.Background(), criteria, "family essay", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Relaxation != RelaxNone {
		t.Errorf("Relaxation = %d, want RelaxNone", matches[0].Relaxation)
	}
}

func TestSearch_RelaxationChain(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1, 0}})
	if err := c.Insert(context.Background(), testRecord("p1")); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		criteria domain.EvaluationCriteria
		tier     int
	}{
		{
			name: "genre and topic dropped first",
			criteria: domain.EvaluationCriteria{
				Grade: domain.TierPrimary, Level: domain.LevelBeginner,
				Genre: "opinion", Topic: "travel",
			},
			tier: RelaxGenreTopic,
		},
		{
			name: "level dropped next",
			criteria: domain.EvaluationCriteria{
				Grade: domain.TierPrimary, Level: domain.LevelAdvanced,
				Genre: "opinion",
			},
			tier: RelaxLevel,
		},
		{
			name: "grade tier dropped last",
			criteria: domain.EvaluationCriteria{
				Grade: domain.TierHigh, Level: domain.LevelAdvanced,
			},
			tier: RelaxGrade,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matches, err := c.Search(context.Background(), tc.criteria, "", 1)
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(matches) != 1 {
				t.Fatalf("expected 1 match, got %d", len(matches))
			}
			if matches[0].Relaxation != tc.tier {
				t.Errorf("Relaxation = %d, want %d", matches[0].Relaxation, tc.tier)
			}
		})
	}
}

func TestSearch_TierExclusivity(t *testing.T) {
	// A tighter tier with survivors must shadow looser tiers entirely.
	c := newTestCorpus(&mockEmbedder{vec: []float32{1, 0}})
	exact := testRecord("p-exact")
	loose := testRecord("p-loose")
	loose.Genre = "opinion"
	for _, rec := range []domain.PromptRecord{loose, exact} {
		if err := c.Insert(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}

	criteria := domain.EvaluationCriteria{
		Grade: domain.TierPrimary, Level: domain.LevelBeginner,
		Genre: "narrative",
	}
	matches, err := c.Search(context.Background(), criteria, "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected only the exact-tier match, got %d", len(matches))
	}
	if matches[0].Record.ID != "p-exact" {
		t.Errorf("matched %q, want p-exact", matches[0].Record.ID)
	}
}

func TestSearch_TieBreakLowestID(t *testing.T) {
	// Identical embeddings produce identical scores; the lowest identifier
	// must win deterministically.
	c := newTestCorpus(&mockEmbedder{vec: []float32{1, 0}})
	for _, id := range []string{"p-beta", "p-alpha", "p-gamma"} {
		if err := c.Insert(context.Background(), testRecord(id)); err != nil {
			t.Fatal(err)
		}
	}

	criteria := domain.EvaluationCriteria{Grade: domain.TierPrimary, Level: domain.LevelBeginner}
	matches, err := c.Search(context.Background(), criteria, "anything", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{"p-alpha", "p-beta", "p-gamma"}
	for i, id := range want {
		if matches[i].Record.ID != id {
			t.Errorf("matches[%d] = %q, want %q", i, matches[i].Record.ID, id)
		}
	}
}

func TestSearch_EmptyCorpus(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1}})
	criteria := domain.EvaluationCriteria{Grade: domain.TierPrimary, Level: domain.LevelBeginner}

	matches, err := c.Search(context.Background(), criteria, "", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestSearch_InvalidCriteria(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1}})
	_, err := c.Search(context.Background(), domain.EvaluationCriteria{Grade: "college"}, "", 1)
	if !errors.Is(err, domain.ErrInvalidCriteria) {
		t.Fatalf("expected ErrInvalidCriteria, got %v", err)
	}
}

func TestSearch_EmbedFailureDegradesToUnranked(t *testing.T) {
	embed := &mockEmbedder{vec: []float32{1, 0}}
	c := newTestCorpus(embed)
	if err := c.Insert(context.Background(), testRecord("p1")); err != nil {
		t.Fatal(err)
	}

	embed.err = errors.New("provider down")
	criteria := domain.EvaluationCriteria{Grade: domain.TierPrimary, Level: domain.LevelBeginner}
	matches, err := c.Search(context.Background(), criteria, "family essay", 1)
	if err != nil {
		t.Fatalf("Search should degrade, not fail: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 unranked match, got %d", len(matches))
	}
	if matches[0].Score != 0 {
		t.Errorf("unranked match score = %v, want 0", matches[0].Score)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	src := newTestCorpus(&mockEmbedder{vec: []float32{0.5, 0.5}})
	for _, id := range []string{"p1", "p2"} {
		if err := src.Insert(context.Background(), testRecord(id)); err != nil {
			t.Fatal(err)
		}
	}

	data, err := src.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	// The destination embedder must never be called: imports carry vectors.
	destEmbed := &mockEmbedder{err: errors.New("should not embed")}
	dest := newTestCorpus(destEmbed)
	if err := dest.ImportJSON(data); err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if destEmbed.calls != 0 {
		t.Errorf("import called the embedder %d times", destEmbed.calls)
	}

	srcAll, destAll := src.All(), dest.All()
	if len(destAll) != len(srcAll) {
		t.Fatalf("imported %d records, want %d", len(destAll), len(srcAll))
	}
	for i := range srcAll {
		if destAll[i].ID != srcAll[i].ID {
			t.Errorf("record %d: id %q, want %q", i, destAll[i].ID, srcAll[i].ID)
		}
		if len(destAll[i].Embedding) != len(srcAll[i].Embedding) {
			t.Errorf("record %d: embedding not preserved", i)
		}
	}
}

func TestImport_Atomicity(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1}})

	// Second record is malformed; the whole batch must be rejected.
	data := []byte(`[
		{"id": "p1", "title": "T", "prompt": "P", "grade": "primary", "level": "beginner", "embedding": [1, 0]},
		{"id": "p2", "title": "T", "prompt": "P", "grade": "kindergarten", "level": "beginner", "embedding": [1, 0]}
	]`)
	err := c.ImportJSON(data)
	if !errors.Is(err, domain.ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport, got %v", err)
	}
	if c.Count() != 0 {
		t.Errorf("Count = %d after failed import, want 0", c.Count())
	}
}

func TestImport_DuplicateAgainstExisting(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1, 0}})
	if err := c.Insert(context.Background(), testRecord("p1")); err != nil {
		t.Fatal(err)
	}

	data := []byte(`[{"id": "p1", "title": "T", "prompt": "P", "grade": "primary", "level": "beginner", "embedding": [1, 0]}]`)
	err := c.ImportJSON(data)
	if !errors.Is(err, domain.ErrMalformedImport) || !errors.Is(err, domain.ErrDuplicateID) {
		t.Fatalf("expected malformed import wrapping ErrDuplicateID, got %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("Count = %d, want 1", c.Count())
	}
}

func TestImport_MissingEmbedding(t *testing.T) {
	c := newTestCorpus(&mockEmbedder{vec: []float32{1}})
	data := []byte(`[{"id": "p1", "title": "T", "prompt": "P", "grade": "primary", "level": "beginner"}]`)
	if err := c.ImportJSON(data); !errors.Is(err, domain.ErrMalformedImport) {
		t.Fatalf("expected ErrMalformedImport, got %v", err)
	}
}

func TestSeed_ComputesMissingEmbeddings(t *testing.T) {
	embed := &mockBatchEmbedder{mockEmbedder: mockEmbedder{vec: []float32{1, 0}}}
	c := newTestCorpus(embed)

	data := []byte(`[
		{"id": "p1", "title": "T", "prompt": "P", "grade": "primary_school_5", "level": "beginner"},
		{"id": "p2", "title": "T", "prompt": "P", "grade": "middle_school_2", "level": "intermediate"}
	]`)
	n, err := c.Seed(context.Background(), data)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 2 {
		t.Errorf("seeded %d records, want 2", n)
	}
	if embed.batchCalls != 1 {
		t.Errorf("BatchEmbed called %d times, want 1", embed.batchCalls)
	}

	// Loose grade spellings normalize to tiers.
	rec, ok := c.Get("p2")
	if !ok {
		t.Fatal("Get(p2) not found")
	}
	if rec.Grade != domain.TierMiddle {
		t.Errorf("Grade = %q, want middle", rec.Grade)
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{1, 0}, []float32{1, 0, 0}, 0}, // mismatched dims
		{nil, nil, 0},
	}
	for _, c := range cases {
		if got := CosineSimilarity(c.a, c.b); got != c.want {
			t.Errorf("CosineSimilarity(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
