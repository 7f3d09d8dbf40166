// Package server exposes the bridge's channels to the network.
//
// Two plain TCP listeners carry the primary channels: the EMC command
// channel (host sends newline-terminated command lines, receives binary
// result envelopes) and the EFC console (a raw byte relay). Each accepts
// one client at a time; a newer connection displaces the older one, which
// keeps a wedged client from locking out the console.
//
// An optional HTTP listener adds a WebSocket mirror of the EMC envelope
// stream plus small control endpoints, including the EFC baud-rate
// setting that a raw TCP socket has no way to convey.
package server
