// Package testutil provides deterministic fakes shared by the core, harness
// and CLI tests.
package testutil
