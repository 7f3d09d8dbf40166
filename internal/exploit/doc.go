// Package exploit implements the privilege-escalation sequence against the
// EMC's ucmd channel.
//
// The attack has four phases, sequenced by Orchestrator:
//
//  1. Constant resolution: the device's version string selects a
//     firmware-specific buffer address and shellcode blob from FwRegistry.
//  2. Payload placement: the two-step challenge protocol (puareq1/puareq2)
//     is abused to copy a crafted command-table-plus-shellcode payload into
//     a buffer at a known address, 50 bytes per chunk.
//  3. Pointer overwrite: deliberately overlong raw input overruns the
//     device's fixed-size line buffer and rewrites the command-table
//     pointer to the placed payload. Bytes in the printable-ASCII range
//     stop the overrun early, so addresses containing them need extra
//     partial passes; a handful of control bytes are unsendable and abort
//     the attempt outright.
//  4. Trigger and verification: the injected command runs the shellcode,
//     after which a normal serial-number query succeeds.
//
// Timing is firmware- and silicon-dependent and is carried in
// ChipConstants; both registries are mutable at runtime through the
// picofwconst/picochipconst maintenance commands.
//
// A failed trigger usually means the EMC crashed. The orchestrator then
// forces a hardware reset and reports the condition distinctly; the device
// needs several seconds to come back, and the caller is expected to poll
// the unlock operation again rather than treat this as fatal.
package exploit
