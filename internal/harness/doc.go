// Package harness runs session scenarios against the real core over a
// simulated host and an in-memory relay.
//
// # Scenario Format
//
//	name: join_listed_database
//	description: "What this scenario checks"
//	identity: { project: alpha, database: fw.idb, tick: 7 }
//	user: { name: ana, color: 0xff00ff }
//	cursor: 0x401000
//	relay:
//	  databases:
//	    alpha: [fw.idb, other.idb]
//	  fail_send: [join_session]
//	steps:
//	  - notify: ready_to_run
//	  - deliver: true
//	  - notify: renamed
//	    args: { ea: 0x401000, new_name: main }
//	  - notify: closebase
//	assertions:
//	  - type: hooked
//	    hooked: false
//	  - type: sent_order
//	    packets: [list_databases, join_session, leave_session]
//
// # Steps
//
// Each step does exactly one thing:
//
//   - notify: fire a host topic (ready_to_run, closebase, or a mutation
//     topic) with optional args. For cmt_changed, args.comment is stored in
//     the host before firing.
//   - deliver: answer every pending database-list query.
//   - reject: fail every pending query with the given message.
//   - advance: move the session tick.
//   - cursor: move the local cursor.
//
// # Assertion Types
//
//   - hooked: fine-grained observers hooked or not
//   - state: session state (idle, awaiting_database_list, joined)
//   - sent_count: number of packets of one type
//   - sent_order: packet types appear in this relative order
//   - identity: persisted identity equals the given one
//   - last_error: none, database_not_registered or dispatch
//   - warnings: number of operator warnings
//
// # Determinism
//
// Each run uses a fresh in-memory sidecar and records every outbound packet
// with the step that caused it. RunWithGolden compares that trace, in
// canonical JSON, against testdata/golden/<name>.golden.
package harness
