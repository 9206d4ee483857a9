// Package config loads and watches the bridge configuration file.
//
// Top-level types:
//   - Config{Bridge}: config tree parsed from the "bridge" YAML section
//   - BridgeConfig: poll_interval, fetch_timeout, batch and concurrency
//     bounds, sources [], sink, retry, ops
//   - Source: id, type (exposition|promapi), url, metrics (promapi only),
//     auth, tls
//   - AuthConfig: mode (apikey|bearer|basic|none), header, key_env,
//     token_env, username, password_env; Key(), Token() and Password()
//     resolve secrets from environment variables
//   - SinkConfig, RetryConfig, OpsConfig: document store target, retry
//     policy, and the operational HTTP listener
//
// Load(path) reads the YAML file, applies defaults (10s poll, 5s fetch,
// 3 retry attempts, 2s backoff base), derives missing source ids from the
// endpoint host:port, then validates required fields and enums. The source
// list is fixed for the process lifetime once loaded.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It handles the rename-then-create
// pattern used by atomic-save editors by re-adding the watch after a save.
package config
