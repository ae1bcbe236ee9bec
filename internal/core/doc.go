// Package core is the event capture and session synchronization engine.
//
// Core wires three parts together:
//
//   - Controller owns every host observer. Two coarse observers (ready and
//     closing) stay installed for the plugin lifetime. The fine-grained
//     mutation observers from package hooks are hooked exactly while the
//     session is joined.
//   - Session runs the join/leave protocol against the relay and owns the
//     persisted identity of the open document.
//   - readyObserver and closingObserver translate the two coarse host signals
//     into Session calls.
//
// All state transitions happen on the host owner loop. The only work arriving
// from elsewhere is the database-list reply, which is marshalled back onto the
// loop with host.Host.Execute and checked against the document generation that
// issued the query before it is allowed to act.
package core
