package ragstory

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
)

// Exemplar pairs a pre-embedded prompt with the story written for it.
type Exemplar struct {
	Embedding []float64
	Story     string
}

// Table is the in-memory exemplar corpus used for style retrieval.
type Table struct {
	exemplars []Exemplar
}

// LoadTable reads the exemplar CSV. The file carries one row per exemplar
// with a prompt_embeddings column holding a JSON array and a Story column
// with the reference text.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ragstory: open exemplar csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ragstory: read exemplar csv: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("ragstory: exemplar csv has no data rows")
	}

	embeddingCol, storyCol := -1, -1
	for i, name := range records[0] {
		switch name {
		case "prompt_embeddings":
			embeddingCol = i
		case "Story":
			storyCol = i
		}
	}
	if embeddingCol < 0 || storyCol < 0 {
		return nil, errors.New("ragstory: exemplar csv missing prompt_embeddings or Story column")
	}

	table := &Table{exemplars: make([]Exemplar, 0, len(records)-1)}
	for i, row := range records[1:] {
		if len(row) <= embeddingCol || len(row) <= storyCol {
			return nil, fmt.Errorf("ragstory: exemplar row %d is short", i+1)
		}
		var embedding []float64
		if err := json.Unmarshal([]byte(row[embeddingCol]), &embedding); err != nil {
			return nil, fmt.Errorf("ragstory: decode embedding on row %d: %w", i+1, err)
		}
		table.exemplars = append(table.exemplars, Exemplar{
			Embedding: embedding,
			Story:     row[storyCol],
		})
	}
	return table, nil
}

// EmptyTable returns a table with no exemplars. Retrieval then yields no
// style context and the prompt instructs the model to proceed without one.
func EmptyTable() *Table { return &Table{} }

// Len reports the number of exemplars.
func (t *Table) Len() int { return len(t.exemplars) }

// Nearest returns the story whose prompt embedding is most similar to the
// query vector by cosine similarity. An empty table yields no context.
func (t *Table) Nearest(query []float64) string {
	best, bestScore := -1, math.Inf(-1)
	for i, ex := range t.exemplars {
		if len(ex.Embedding) != len(query) {
			continue
		}
		score := cosine(query, ex.Embedding)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return ""
	}
	return t.exemplars[best].Story
}

func cosine(a, b []float64) float64 {
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}
