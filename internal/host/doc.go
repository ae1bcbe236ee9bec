// Package host describes the slice of the reverse-engineering host that the
// sync core depends on: topic subscription, a few read-only queries, the
// per-document netnode storage and the owner loop all host callbacks run on.
//
// The real host binding lives outside this module. Sim is an in-process
// implementation used by the simulator, the scenario harness and tests.
package host
