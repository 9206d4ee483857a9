// Package seed synthesizes mock metric history and bulk-loads it into the
// document store. It exists for demo and development setups that want
// populated dashboards before the bridge has accumulated real history.
//
// Generate produces one point document per metric per step across a lookback
// window. Loader pushes them through the bulk sink protocol in bounded
// batches, optionally rate limited.
package seed
