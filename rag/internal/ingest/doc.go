// Package ingest builds the vector index from text documents: read, split
// into overlapping word windows (Chunk), embed each window, add it to the
// index.
//
// Service.IngestDir indexes a directory's .txt files in name order at
// startup; Service.Watch keeps ingesting files dropped into the directory
// afterwards. Per-file failures are logged and skipped so one bad document
// never blocks the corpus. Re-ingesting a file replaces its chunks, so the
// watcher's duplicate filesystem events stay harmless.
//
// Instruments registered: rag_ingested_docs_total, rag_ingested_chunks_total,
// rag_index_size, rag_last_index_unix, rag_embed_duration_seconds.
package ingest
