// Package uart owns the physical serial links to the console.
//
// A Port pairs a serial device with a background reader goroutine that
// feeds every received byte into a lock-free ring; the protocol layers
// consume from the ring and write to the port directly. The modem control
// lines double as GPIOs on the adapter board: DTR drives the EMC reset
// transistor, RTS drives the boot-ROM strap, and DSR reads the reset net
// back so software can tell when something else is holding the chip down.
package uart
