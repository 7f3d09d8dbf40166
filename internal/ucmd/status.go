package ucmd

// Status codes carried by OK/NG responses. The 0xE/0xF blocks are emitted
// by the device itself; the 0xDEAD block is synthesized by this bridge for
// conditions the device cannot report.
const (
	StatusSuccess        uint32 = 0
	StatusRxInputTooLong uint32 = 0xE0000002
	StatusRxInvalidChar  uint32 = 0xE0000003
	StatusRxInvalidCsum  uint32 = 0xE0000004
	StatusEINVAL         uint32 = 0xF0000001
	StatusUnknownCmd     uint32 = 0xF0000006

	StatusEmcInReset               uint32 = 0xDEAD0000
	StatusFwConstsVersionFailed    uint32 = 0xDEAD0001
	StatusFwConstsVersionUnknown   uint32 = 0xDEAD0002
	StatusFwConstsInvalid          uint32 = 0xDEAD0003
	StatusSetPayloadTooLarge       uint32 = 0xDEAD0004
	StatusSetPayloadPuareq1Failed  uint32 = 0xDEAD0005
	StatusSetPayloadPuareq2Failed  uint32 = 0xDEAD0006
	StatusExploitVersionUnexpected uint32 = 0xDEAD0007
	StatusExploitFailedEmcReset    uint32 = 0xDEAD0008
	StatusChipConstsInvalid        uint32 = 0xDEAD0009
	StatusRomFrame                 uint32 = 0xDEAD000A
)
