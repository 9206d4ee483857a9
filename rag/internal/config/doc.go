// Package config loads the ragd configuration file.
//
// Top-level types:
//   - Config{RAG}: config tree parsed from the "rag" YAML section
//   - RAGConfig: metrics_addr, docs_dir, watch, chunking window/overlap,
//     top_k, embedder (ollama|hash), ollama, query_log
//   - OllamaConfig: model server url, generate_model, embed_model, timeout
//   - QueryLogConfig: enabled, store url, index
//
// Load(path) reads the YAML file, applies defaults (400-word chunks with a
// 40-word overlap, top-3 retrieval, llama3 generation) and validates the
// result. Unknown sections are ignored, so ragd and the bridge can share
// one config file.
package config
