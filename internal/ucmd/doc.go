// Package ucmd implements the EMC's line-oriented maintenance command
// protocol ("ucmd") as spoken over its UART.
//
// # Wire format
//
// Every command line sent to the device carries a trailing checksum field:
// the command text, a ':', and two uppercase hex digits equal to the sum of
// the preceding bytes mod 256, terminated by '\n'. The device echoes the
// line verbatim, then eventually emits exactly one terminal response:
//
//	OK <8-hex-status>[ <text>]
//	NG <8-hex-status>[ <text>]
//
// interleaved with any number of asynchronous chatter lines ("# ..."
// comments and "$$ ..." info lines). Inbound lines carry the same checksum
// suffix, which is validated and stripped; lines that fail validation are
// dropped silently. The device can emit corrupt lines when its print path
// is re-entered, so a dropped line is routine, not an error.
//
// # Results
//
// Result is the closed union over everything the channel can produce:
// Timeout, Unknown, Comment, Info, Ok and Ng. Ok/Ng carry the 32-bit status
// and optional free text. Results cross to the host in a fixed binary
// envelope (see Encode/DecodeEnvelope).
//
// # Client
//
// Client owns the outbound transport and the receive ring for one EMC link.
// All waiting is timed polling against an injected Clock; there are no
// blocking reads, because exploit-path timing depends on the channel never
// sleeping inside a critical exchange.
package ucmd
