// Package console is the interactive terminal client for a running
// bridge.
//
// It dials the bridge's EMC channel, renders the decoded envelope stream
// in a scrollback viewport, and sends typed command lines. Maintenance
// commands (unlock, picoemcrom, ...) work exactly as they do over a raw
// socket; the console only adds color and history.
package console
