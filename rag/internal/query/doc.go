// Package query answers questions over the indexed corpus.
//
// Engine.Answer embeds the question, retrieves the top-k nearest chunks from
// the vector index, assembles the generation prompt, and asks the model for
// an answer. Retrieval and generation are timed into histograms; every query
// lands on the rag_queries_total counter under its outcome.
//
// Logger is the query-time audit trail: one JSON document per query written
// to the document store through the single-document protocol, best effort
// with bounded retries. A store outage never fails the answer.
//
// Engine.Handler serves GET /query?q= returning the Answer JSON.
package query
