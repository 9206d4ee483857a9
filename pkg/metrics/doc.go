// Package metrics provides the process-local metrics registry shared by the
// bridge and the rag services. Each process constructs one Registry, hands it
// to the components that record on it, and mounts Handler on its HTTP
// listener to expose the plain text exposition format. Nothing here registers
// on a global registry, so tests can construct a Registry per case and assert
// on instrument values in isolation.
package metrics
