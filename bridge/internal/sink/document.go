package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Document is the sink-bound representation of one source poll: capture
// timestamp, source identifier, and the captured metric map. A Document is
// never mutated after construction.
type Document struct {
	Timestamp time.Time          `json:"@timestamp"`
	Service   string             `json:"service"`
	Metrics   map[string]float64 `json:"metrics"`
}

// NewDocument builds the Document for one poll of sourceID. The timestamp is
// taken at construction time, so it is never older than the fetch that
// produced the samples.
func NewDocument(sourceID string, samples map[string]float64) Document {
	return Document{
		Timestamp: time.Now().UTC(),
		Service:   sourceID,
		Metrics:   samples,
	}
}

// PointDocument is the bulk-ingest variant of the document model: one sample
// per document, labeled. The seed tool writes these; the bridge's canonical
// granularity stays one Document per source per cycle.
type PointDocument struct {
	Timestamp time.Time         `json:"@timestamp"`
	Metric    string            `json:"metric"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels"`
}

// bulkAction is the NDJSON action line preceding each document.
type bulkAction struct {
	Index bulkTarget `json:"index"`
}

type bulkTarget struct {
	Index string `json:"_index"`
}

// EncodeBulk renders docs as the store's bulk payload for the named index:
// an action line then the document JSON, one line each, with a trailing
// newline after the final document. An empty doc list yields a nil payload.
func EncodeBulk(index string, docs []any) ([]byte, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	action, err := json.Marshal(bulkAction{Index: bulkTarget{Index: index}})
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		line, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal document: %w", err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
