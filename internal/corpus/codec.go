package corpus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fluentedge/essaylab/internal/domain"
)

// recordDTO is the JSON persistence shape of a prompt record. Export and
// import round-trip every field, embeddings included.
type recordDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Prompt       string    `json:"prompt"`
	Grade        string    `json:"grade"`
	Level        string    `json:"level"`
	Genre        string    `json:"genre,omitempty"`
	Topic        string    `json:"topic,omitempty"`
	Requirements []string  `json:"requirements,omitempty"`
	Keywords     []string  `json:"keywords,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
	MinWords     int       `json:"min_words,omitempty"`
	MaxWords     int       `json:"max_words,omitempty"`
}

func toDTO(rec *domain.PromptRecord) recordDTO {
	return recordDTO{
		ID:           rec.ID,
		Title:        rec.Title,
		Prompt:       rec.Prompt,
		Grade:        string(rec.Grade),
		Level:        string(rec.Level),
		Genre:        rec.Genre,
		Topic:        rec.Topic,
		Requirements: rec.Requirements,
		Keywords:     rec.Keywords,
		Embedding:    rec.Embedding,
		MinWords:     rec.MinWords,
		MaxWords:     rec.MaxWords,
	}
}

// fromDTO maps a DTO to a record, normalizing loose grade/level spellings.
func fromDTO(dto recordDTO) (domain.PromptRecord, error) {
	grade, ok := domain.ParseGradeTier(dto.Grade)
	if !ok {
		return domain.PromptRecord{}, fmt.Errorf("%w: record %q has unknown grade %q",
			domain.ErrInvalidRecord, dto.ID, dto.Grade)
	}
	level, ok := domain.ParseProficiency(dto.Level)
	if !ok {
		return domain.PromptRecord{}, fmt.Errorf("%w: record %q has unknown level %q",
			domain.ErrInvalidRecord, dto.ID, dto.Level)
	}
	return domain.PromptRecord{
		ID:           dto.ID,
		Title:        dto.Title,
		Prompt:       dto.Prompt,
		Grade:        grade,
		Level:        level,
		Genre:        dto.Genre,
		Topic:        dto.Topic,
		Requirements: dto.Requirements,
		Keywords:     dto.Keywords,
		Embedding:    dto.Embedding,
		MinWords:     dto.MinWords,
		MaxWords:     dto.MaxWords,
	}, nil
}

// ExportJSON serializes the full corpus, embeddings included, in insertion
// order.
func (c *Corpus) ExportJSON() ([]byte, error) {
	c.mu.RLock()
	dtos := make([]recordDTO, len(c.records))
	for i := range c.records {
		dtos[i] = toDTO(&c.records[i])
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(dtos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal corpus: %w", err)
	}
	return data, nil
}

// ImportJSON appends all records from an exported corpus. The import is
// atomic: every record is validated first, and any malformed record rejects
// the whole batch with domain.ErrMalformedImport, leaving the corpus in its
// pre-import state. Imported records must carry their embeddings.
func (c *Corpus) ImportJSON(data []byte) error {
	var dtos []recordDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedImport, err)
	}

	batch := make([]domain.PromptRecord, 0, len(dtos))
	seen := make(map[string]struct{}, len(dtos))
	batchDim := 0
	for _, dto := range dtos {
		rec, err := fromDTO(dto)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrMalformedImport, err)
		}
		if err := validateRecord(&rec); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrMalformedImport, err)
		}
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("%w: record %q has no embedding", domain.ErrMalformedImport, rec.ID)
		}
		if batchDim == 0 {
			batchDim = len(rec.Embedding)
		} else if len(rec.Embedding) != batchDim {
			return fmt.Errorf("%w: record %q: %w", domain.ErrMalformedImport, rec.ID, domain.ErrVectorDimMismatch)
		}
		if _, dup := seen[rec.ID]; dup {
			return fmt.Errorf("%w: %w: %q", domain.ErrMalformedImport, domain.ErrDuplicateID, rec.ID)
		}
		seen[rec.ID] = struct{}{}
		batch = append(batch, rec)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dim > 0 && batchDim > 0 && batchDim != c.dim {
		return fmt.Errorf("%w: batch has dimension %d, corpus has %d",
			domain.ErrMalformedImport, batchDim, c.dim)
	}
	for i := range batch {
		if _, dup := c.byID[batch[i].ID]; dup {
			return fmt.Errorf("%w: %w: %q", domain.ErrMalformedImport, domain.ErrDuplicateID, batch[i].ID)
		}
	}
	if c.dim == 0 {
		c.dim = batchDim
	}
	for i := range batch {
		c.byID[batch[i].ID] = len(c.records)
		c.records = append(c.records, batch[i])
	}
	return nil
}

// Seed loads prompt records from an authored JSON file. Unlike ImportJSON,
// records may omit embeddings; missing vectors are computed in one batch
// call when the embedder supports it.
func (c *Corpus) Seed(ctx context.Context, data []byte) (int, error) {
	var dtos []recordDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrMalformedImport, err)
	}

	recs := make([]domain.PromptRecord, 0, len(dtos))
	var pendingIdx []int
	var pendingTexts []string
	for _, dto := range dtos {
		rec, err := fromDTO(dto)
		if err != nil {
			return 0, err
		}
		if err := validateRecord(&rec); err != nil {
			return 0, err
		}
		if len(rec.Embedding) == 0 {
			pendingIdx = append(pendingIdx, len(recs))
			pendingTexts = append(pendingTexts, rec.EmbeddingText())
		}
		recs = append(recs, rec)
	}

	if len(pendingTexts) > 0 {
		var res domain.BatchEmbeddingResult
		var err error
		if be, ok := c.embed.(domain.BatchEmbedder); ok {
			res, err = be.BatchEmbed(ctx, pendingTexts)
		} else {
			res, err = domain.BatchFallback(ctx, c.embed, pendingTexts)
		}
		if err != nil {
			return 0, fmt.Errorf("embed seed prompts: %w", err)
		}
		for i, idx := range pendingIdx {
			recs[idx].Embedding = res.Embeddings[i]
		}
	}

	inserted := 0
	for i := range recs {
		if err := c.Insert(ctx, recs[i]); err != nil {
			return inserted, fmt.Errorf("seed record %q: %w", recs[i].ID, err)
		}
		inserted++
	}
	return inserted, nil
}
