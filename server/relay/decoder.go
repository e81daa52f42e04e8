package relay

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// codeDecoder incrementally extracts the string value at the top-level "code"
// key from a byte stream of (possibly truncated) JSON. It is a hand-rolled
// state machine instead of a general streaming-JSON parser so the
// delta-emission contract stays auditable: Code() only ever grows, and
// malformed input freezes the value without erroring.
type codeDecoder struct {
	state   dstate
	key     strings.Builder
	code    strings.Builder
	inCode  bool // current string value belongs to the "code" key
	done    bool
	hex     [4]byte
	hexLen  int
	pending rune // pending high surrogate, 0 if none
	depth   int  // nesting while skipping a non-code value
	skipStr bool // inside a string while skipping
	skipEsc bool
}

type dstate int

const (
	dSeekBrace dstate = iota
	dSeekKey
	dKey
	dKeyEscape
	dAfterKey
	dSeekValue
	dString
	dEscape
	dUnicode
	dAfterValue
	dSkipValue
	dDone
	dFailed
)

func newCodeDecoder() *codeDecoder { return &codeDecoder{} }

// Code is the value extracted so far. Monotonically non-shrinking.
func (d *codeDecoder) Code() string { return d.code.String() }

// Done reports whether the code string's closing quote has been seen.
func (d *codeDecoder) Done() bool { return d.done }

// Write feeds raw bytes. It never fails: unexpected input moves the decoder
// to a terminal failed state that ignores everything after it.
func (d *codeDecoder) Write(p []byte) {
	for _, b := range p {
		d.step(b)
	}
}

func (d *codeDecoder) step(b byte) {
	switch d.state {
	case dDone, dFailed:
		return

	case dSeekBrace:
		if isSpace(b) {
			return
		}
		if b == '{' {
			d.state = dSeekKey
			return
		}
		d.state = dFailed

	case dSeekKey:
		switch {
		case isSpace(b) || b == ',':
		case b == '"':
			d.key.Reset()
			d.state = dKey
		case b == '}':
			d.state = dDone
		default:
			d.state = dFailed
		}

	case dKey:
		switch b {
		case '"':
			d.inCode = d.key.String() == "code"
			d.state = dAfterKey
		case '\\':
			d.state = dKeyEscape
		default:
			d.key.WriteByte(b)
		}

	case dKeyEscape:
		// Escapes in key names do not need decoding: "code" has none, any
		// escaped key is by definition not "code".
		d.key.WriteByte(0xff)
		d.state = dKey

	case dAfterKey:
		if isSpace(b) {
			return
		}
		if b == ':' {
			d.state = dSeekValue
			return
		}
		d.state = dFailed

	case dSeekValue:
		if isSpace(b) {
			return
		}
		if b == '"' {
			if d.inCode {
				d.state = dString
			} else {
				d.state = dSkipValue
				d.depth = 0
				d.skipStr = true
				d.skipEsc = false
			}
			return
		}
		// Non-string value: the schema forbids it for "code"; skip it.
		d.state = dSkipValue
		d.depth = 0
		d.skipStr = false
		d.skipEsc = false
		d.skip(b)

	case dString:
		switch b {
		case '"':
			d.done = true
			d.state = dAfterValue
		case '\\':
			d.state = dEscape
		default:
			d.code.WriteByte(b)
		}

	case dEscape:
		switch b {
		case '"', '\\', '/':
			d.code.WriteByte(b)
			d.state = dString
		case 'n':
			d.code.WriteByte('\n')
			d.state = dString
		case 't':
			d.code.WriteByte('\t')
			d.state = dString
		case 'r':
			d.code.WriteByte('\r')
			d.state = dString
		case 'b':
			d.code.WriteByte('\b')
			d.state = dString
		case 'f':
			d.code.WriteByte('\f')
			d.state = dString
		case 'u':
			d.hexLen = 0
			d.state = dUnicode
		default:
			d.state = dFailed
		}

	case dUnicode:
		if !isHex(b) {
			d.state = dFailed
			return
		}
		d.hex[d.hexLen] = b
		d.hexLen++
		if d.hexLen < 4 {
			return
		}
		r := rune(hexVal(d.hex[0])<<12 | hexVal(d.hex[1])<<8 | hexVal(d.hex[2])<<4 | hexVal(d.hex[3]))
		switch {
		case utf16.IsSurrogate(r) && d.pending == 0:
			d.pending = r
		case d.pending != 0:
			d.code.WriteRune(utf16.DecodeRune(d.pending, r))
			d.pending = 0
		default:
			d.code.WriteRune(r)
		}
		d.state = dString

	case dAfterValue:
		switch {
		case isSpace(b):
		case b == ',':
			d.state = dSeekKey
		case b == '}':
			d.state = dDone
		default:
			d.state = dFailed
		}

	case dSkipValue:
		d.skip(b)
	}
}

// skip consumes one byte of a value we do not care about, tracking string
// and bracket nesting until the value ends.
func (d *codeDecoder) skip(b byte) {
	if d.skipStr {
		switch {
		case d.skipEsc:
			d.skipEsc = false
		case b == '\\':
			d.skipEsc = true
		case b == '"':
			d.skipStr = false
			if d.depth == 0 {
				d.state = dAfterValue
			}
		}
		return
	}
	switch b {
	case '"':
		d.skipStr = true
	case '{', '[':
		d.depth++
	case '}', ']':
		d.depth--
		if d.depth <= 0 {
			d.state = dAfterValue
		}
	case ',':
		if d.depth == 0 {
			d.state = dSeekKey
		}
	}
	// Scalars (numbers, true/false/null) at depth 0 end at ',' or '}',
	// both handled above.
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func isHex(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}

// completeUTF8 returns the longest prefix length of s that ends on a rune
// boundary, so a delta never splits a multi-byte character between frames.
func completeUTF8(s string) int {
	i := len(s)
	for i > 0 && len(s)-i < utf8.UTFMax && !utf8.RuneStart(s[i-1]) {
		i--
	}
	if i == 0 {
		return len(s)
	}
	start := i - 1
	if utf8.FullRuneInString(s[start:]) {
		return len(s)
	}
	return start
}
