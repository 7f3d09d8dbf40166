// Package bridge relays between the host-facing channels and the console
// UARTs.
//
// One goroutine owns the whole relay: host command lines arrive over a
// channel, device bytes are drained from the port receive rings, and
// everything the EMC says goes back to the host as binary envelopes. Most
// lines pass through to the EMC untouched; a small maintenance vocabulary
// (unlock, picoreset, picoemcreset, picoemcrom, picofwconst,
// picochipconst) is intercepted and handled locally. The EFC channel is a
// dumb byte relay with a host-settable baud rate.
//
// In ROM mode the EMC talks the boot ROM's binary protocol instead of
// ucmd: host lines are hex-decoded onto the wire and raw device bytes are
// delivered as hex-encoded frame envelopes.
package bridge
