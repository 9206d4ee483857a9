// Package llm provides the model-side collaborators of the rag services
// behind two small interfaces: Embedder turns text into a vector, Generator
// answers a fully assembled prompt.
//
// Client implements both against an Ollama-compatible HTTP server
// (POST /api/embeddings, POST /api/generate with streaming disabled). Every
// call carries a context and a request timeout.
//
// HashEmbedder is a deterministic offline Embedder for setups without a
// model server; generation has no offline fallback because there is nothing
// sensible to fall back to.
package llm
