// Package relay is the client side of the relay protocol: JSON envelopes
// over a websocket, with request/reply correlation for queries and
// fire-and-forget sends for everything else.
package relay
