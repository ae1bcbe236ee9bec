// Package hooks turns host mutation notifications into outbound events.
//
// An Observer is a named group of (topic, handler) registrations that is
// subscribed and cancelled as a unit. Catalogue builds the fixed set of
// fine-grained observers: one handler per mutation topic, each producing
// exactly one event and forwarding it to a Sender without waiting.
//
// Observers carry no "session joined" check. Whether notifications reach
// them at all is decided by who hooks them (see package core).
package hooks
