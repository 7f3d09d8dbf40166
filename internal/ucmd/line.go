package ucmd

import (
	"bytes"
	"fmt"
	"strconv"
)

// Checksum returns the ucmd line checksum: the sum of all bytes mod 256.
func Checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}

// AppendChecksum renders a command line for the wire: text, ':', two
// uppercase hex checksum digits and the '\n' terminator.
func AppendChecksum(cmdline string) string {
	return fmt.Sprintf("%s:%02X\n", cmdline, Checksum([]byte(cmdline)))
}

// ValidateLine checks and strips the trailing ":XX" checksum field of a
// received line. Trailing CR/LF bytes are removed first. It returns the
// line without the checksum suffix, or false when the line is empty, has no
// checksum field in the expected position, the hex digits do not decode, or
// the checksum does not match.
func ValidateLine(line []byte) ([]byte, bool) {
	if len(line) == 0 {
		return nil, false
	}
	line = bytes.TrimRight(line, "\r\n")
	colon := bytes.LastIndexByte(line, ':')
	if colon < 0 || colon+3 != len(line) {
		return nil, false
	}
	csum, err := strconv.ParseUint(string(line[colon+1:]), 16, 8)
	if err != nil {
		return nil, false
	}
	if byte(csum) != Checksum(line[:colon]) {
		return nil, false
	}
	return line[:colon], true
}
