package index

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Chunk is one indexed piece of a source document. Chunks are immutable once
// added; re-ingesting a file replaces its chunks wholesale.
type Chunk struct {
	// ID uniquely identifies the chunk.
	ID string

	// File is the base name of the document the chunk came from.
	File string

	// Ordinal is the chunk's position within its file, starting at 0.
	Ordinal int

	// Text is the chunk's content, used verbatim as retrieval context.
	Text string
}

// Result pairs a stored chunk with its similarity to a query vector.
type Result struct {
	Chunk

	// Score is the cosine similarity in [-1, 1]; higher is closer.
	Score float64
}

// Index is a thread-safe in-memory exact nearest-neighbor index. Vectors are
// L2-normalized on insert, so cosine similarity reduces to a dot product at
// search time. All stored vectors share one width, fixed by the first Add.
type Index struct {
	mu      sync.RWMutex
	dims    int
	chunks  []Chunk
	vectors [][]float32
}

// New returns an empty Index.
func New() *Index {
	return &Index{}
}

// Add stores chunk under the given embedding vector. The first Add fixes the
// index width; later vectors of a different width are rejected, which is the
// usual symptom of mixing embedding backends.
func (ix *Index) Add(chunk Chunk, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("index: empty vector for chunk %q", chunk.ID)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dims == 0 {
		ix.dims = len(vector)
	} else if len(vector) != ix.dims {
		return fmt.Errorf("index: vector width %d does not match index width %d",
			len(vector), ix.dims)
	}

	ix.chunks = append(ix.chunks, chunk)
	ix.vectors = append(ix.vectors, unit(vector))
	return nil
}

// Search returns the k chunks most similar to vector, best first. Fewer than
// k results are returned when the index is smaller; k below 1 or an empty
// index yields nil. Equal scores keep insertion order.
func (ix *Index) Search(vector []float32, k int) []Result {
	if k < 1 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.chunks) == 0 || len(vector) != ix.dims {
		return nil
	}

	q := unit(vector)
	results := make([]Result, len(ix.chunks))
	for i, vec := range ix.vectors {
		var score float64
		for j := range vec {
			score += float64(vec[j]) * float64(q[j])
		}
		results[i] = Result{Chunk: ix.chunks[i], Score: score}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}

// DropFile removes every chunk of the named file and reports how many were
// removed. Ingest calls it before re-adding a file so repeated ingestion of
// the same document stays idempotent.
func (ix *Index) DropFile(file string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := 0
	for i, c := range ix.chunks {
		if c.File == file {
			continue
		}
		ix.chunks[kept] = ix.chunks[i]
		ix.vectors[kept] = ix.vectors[i]
		kept++
	}
	dropped := len(ix.chunks) - kept
	ix.chunks = ix.chunks[:kept]
	ix.vectors = ix.vectors[:kept]
	return dropped
}

// Len reports how many chunks the index holds.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// unit returns a normalized copy of vec. The zero vector is copied as-is so
// it scores 0 against everything instead of NaN.
func unit(vec []float32) []float32 {
	out := make([]float32, len(vec))
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		copy(out, vec)
		return out
	}
	norm := math.Sqrt(sum)
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
