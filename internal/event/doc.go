// Package event defines the outbound events produced from local document
// mutations.
//
// Each Event is one captured mutation: the kind plus the addresses and payload
// a remote participant needs to replay it. Events are created by the hooks
// package, handed to the transport and never retained.
//
// # Encoding
//
// Encode produces canonical JSON (RFC 8785 key order, no HTML escaping, no
// floats) of the flat object {"type": kind, ...fields}. Strings are sent as
// captured so a remote replay sees the same names and comments; invalid
// UTF-8 is an encoding error. ID hashes the same object with its strings
// NFC-normalised under the domain prefix "idarling/event/v1", so two
// participants capturing the same mutation agree on its identity.
package event
