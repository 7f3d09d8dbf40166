package ucmd

import (
	"encoding/binary"
	"fmt"
	"io"
)

// The host envelope is a fixed little-endian binary frame:
//
//	[1]  kind
//	[4]  payload length
//	[4]  status     (present only for Ok/Ng; counted in the payload length)
//	[n]  payload text
const envelopeHeaderLen = 1 + 4

// maxEnvelopePayload bounds DecodeEnvelope allocations against a corrupt
// stream. Device lines are short; nothing legitimate approaches this.
const maxEnvelopePayload = 1 << 20

// Encode serializes the result into its host envelope.
func (r Result) Encode() []byte {
	payloadLen := len(r.Text)
	if r.IsOkOrNg() {
		payloadLen += 4
	}
	data := make([]byte, 0, envelopeHeaderLen+payloadLen)
	data = append(data, byte(r.Kind))
	data = binary.LittleEndian.AppendUint32(data, uint32(payloadLen))
	if r.IsOkOrNg() {
		data = binary.LittleEndian.AppendUint32(data, r.Status)
	}
	return append(data, r.Text...)
}

// DecodeEnvelope reads one envelope from the stream. It is the host-side
// inverse of Encode, used by the interactive console.
func DecodeEnvelope(r io.Reader) (Result, error) {
	var header [envelopeHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Result{}, err
	}
	kind := Kind(header[0])
	if kind > KindNg {
		return Result{}, fmt.Errorf("invalid envelope kind 0x%02x", header[0])
	}
	payloadLen := binary.LittleEndian.Uint32(header[1:])
	if payloadLen > maxEnvelopePayload {
		return Result{}, fmt.Errorf("envelope payload length %d exceeds limit", payloadLen)
	}

	res := Result{Kind: kind, Status: InvalidStatus}
	remaining := int(payloadLen)
	if kind == KindOk || kind == KindNg {
		if remaining < 4 {
			return Result{}, fmt.Errorf("%s envelope too short for status (%d bytes)", kind, remaining)
		}
		var status [4]byte
		if _, err := io.ReadFull(r, status[:]); err != nil {
			return Result{}, err
		}
		res.Status = binary.LittleEndian.Uint32(status[:])
		remaining -= 4
	}
	if remaining > 0 {
		text := make([]byte, remaining)
		if _, err := io.ReadFull(r, text); err != nil {
			return Result{}, err
		}
		res.Text = string(text)
	}
	return res, nil
}
