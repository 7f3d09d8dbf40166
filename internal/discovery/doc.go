// Package discovery announces running bridges over mDNS and finds them
// again from client machines.
//
// A bridge registers as a "_salina-uart._tcp" service whose port is the
// EMC command channel; the EFC and HTTP ports ride along in TXT records.
// The console subcommand browses for the same service so a bench setup
// works without anyone remembering IP addresses.
package discovery
