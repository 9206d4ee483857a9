// Package index is the in-memory vector index behind the rag services: a
// flat, exact nearest-neighbor store over L2-normalized embedding vectors,
// searched by cosine similarity. The query side treats it as a black-box
// oracle; nothing fancier than a linear scan lives here, which is plenty for
// the corpus sizes a single daemon ingests.
package index
