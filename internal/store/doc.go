// Package store provides the SQLite-backed durable record that sits next to a
// host document.
//
// The host tool keeps plugin state inside the document itself. Outside the
// host we approximate that with a sidecar database whose lifetime follows the
// document file: the sidecar is derived from the document path and is never
// shared between documents.
//
// # Layout
//
// State is grouped into named nodes, each a flat string key/value hash:
//
//	netnodes(node TEXT, key TEXT, value TEXT, PRIMARY KEY(node, key))
//
// The session identity lives in the node named "$ idarling" with the keys
// "project", "database" and "tick".
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
