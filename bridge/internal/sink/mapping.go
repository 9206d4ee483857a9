package sink

// MetricsMapping is the index mapping for per-cycle metric documents.
// The metrics object stays dynamic: new metric names become fields as they
// first appear.
const MetricsMapping = `{
  "mappings": {
    "properties": {
      "@timestamp": {"type": "date"},
      "service":    {"type": "keyword"},
      "metrics":    {"type": "object", "dynamic": true}
    }
  }
}`

// PointsMapping is the index mapping for the one-sample-per-document variant
// written by the seed tool.
const PointsMapping = `{
  "mappings": {
    "properties": {
      "@timestamp": {"type": "date"},
      "metric":     {"type": "keyword"},
      "value":      {"type": "float"},
      "labels": {
        "properties": {
          "job":      {"type": "keyword"},
          "instance": {"type": "keyword"}
        }
      }
    }
  }
}`
