// Package elastic is a minimal client for the document store's HTTP surface:
// index existence and creation, single-document writes, and NDJSON bulk
// writes. It covers exactly the calls the bridge and the query logger make;
// search and aggregation belong to the store's own query engine and are not
// wrapped here.
//
// Authentication (basic, API key header) is injected by a RoundTripper so
// call sites never touch credentials. Every call takes a context and the
// client enforces a request timeout on top of it.
package elastic
