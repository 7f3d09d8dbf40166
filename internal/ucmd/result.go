package ucmd

import (
	"fmt"
	"strconv"
)

// Kind identifies what a Result represents. The numeric values are part of
// the host envelope format and must not be reordered.
type Kind byte

const (
	KindTimeout Kind = iota
	KindUnknown
	KindComment
	KindInfo
	KindOk
	KindNg
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnknown:
		return "unknown"
	case KindComment:
		return "comment"
	case KindInfo:
		return "info"
	case KindOk:
		return "ok"
	case KindNg:
		return "ng"
	default:
		return fmt.Sprintf("kind(%d)", byte(k))
	}
}

// InvalidStatus is the placeholder status for result kinds that carry none.
const InvalidStatus = ^uint32(0)

// Result is a single terminal or asynchronous response from the EMC, or a
// locally synthesized condition (timeout, exploit stage failure). It is
// immutable once constructed.
type Result struct {
	Kind   Kind
	Status uint32
	Text   string
}

// ParseResult classifies one validated line. Parsing is permissive: OK/NG
// lines with a malformed status field degrade to Unknown rather than
// erroring, since the device can emit arbitrary text at any time.
func ParseResult(line string) Result {
	if len(line) > 2 && line[:2] == "# " {
		return Result{Kind: KindComment, Status: InvalidStatus, Text: line[2:]}
	}
	if len(line) > 3 && line[:3] == "$$ " {
		return Result{Kind: KindInfo, Status: InvalidStatus, Text: line[3:]}
	}

	// "OK " or "NG ", 8 hex status digits, then an optional space-separated
	// trailing payload.
	const statusOffset = 3
	const statusEnd = statusOffset + 8
	if len(line) < statusEnd {
		return NewUnknown(line)
	}
	isOk := line[:statusOffset] == "OK "
	isNg := line[:statusOffset] == "NG "
	if !isOk && !isNg {
		return NewUnknown(line)
	}
	status, err := strconv.ParseUint(line[statusOffset:statusEnd], 16, 32)
	if err != nil {
		return NewUnknown(line)
	}
	var text string
	if len(line) > statusEnd {
		if line[statusEnd] != ' ' {
			return NewUnknown(line)
		}
		text = line[statusEnd+1:]
	}
	kind := KindOk
	if isNg {
		kind = KindNg
	}
	return Result{Kind: kind, Status: uint32(status), Text: text}
}

func NewTimeout() Result {
	return Result{Kind: KindTimeout, Status: InvalidStatus}
}

func NewUnknown(text string) Result {
	return Result{Kind: KindUnknown, Status: InvalidStatus, Text: text}
}

func NewOk(status uint32, text string) Result {
	return Result{Kind: KindOk, Status: status, Text: text}
}

func NewNg(status uint32, text string) Result {
	return Result{Kind: KindNg, Status: status, Text: text}
}

// NewSuccess is shorthand for an OK result with a zero status.
func NewSuccess() Result {
	return NewOk(StatusSuccess, "")
}

func (r Result) IsUnknown() bool { return r.Kind == KindUnknown }
func (r Result) IsComment() bool { return r.Kind == KindComment }
func (r Result) IsInfo() bool    { return r.Kind == KindInfo }
func (r Result) IsOk() bool      { return r.Kind == KindOk }
func (r Result) IsNg() bool      { return r.Kind == KindNg }
func (r Result) IsOkOrNg() bool  { return r.IsOk() || r.IsNg() }

func (r Result) IsOkStatus(status uint32) bool { return r.IsOk() && r.Status == status }
func (r Result) IsNgStatus(status uint32) bool { return r.IsNg() && r.Status == status }
func (r Result) IsSuccess() bool               { return r.IsOkStatus(StatusSuccess) }

// Format renders the result the way the device itself frames lines, for
// logs and human output.
func (r Result) Format() string {
	switch r.Kind {
	case KindOk:
		return fmt.Sprintf("OK %08X %s", r.Status, r.Text)
	case KindNg:
		return fmt.Sprintf("NG %08X %s", r.Status, r.Text)
	case KindComment:
		return fmt.Sprintf("# %s", r.Text)
	case KindInfo:
		return fmt.Sprintf("$$ %s", r.Text)
	case KindUnknown:
		return r.Text
	default:
		return "timeout"
	}
}
