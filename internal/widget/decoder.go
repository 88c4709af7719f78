package widget

import (
	"strings"
	"unicode/utf8"
)

// Decoder turns a byte stream into text chunk by chunk. An incomplete
// multi-byte sequence at the end of a chunk is held until the next one.
type Decoder struct {
	pending []byte
}

// Write returns the text that is complete after appending p.
func (d *Decoder) Write(p []byte) string {
	buf := append(d.pending, p...)
	cut := len(buf)
	for i := len(buf) - 1; i >= 0 && i > len(buf)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(buf[i]) {
			continue
		}
		if !utf8.FullRune(buf[i:]) {
			cut = i
		}
		break
	}
	d.pending = append([]byte(nil), buf[cut:]...)
	return strings.ToValidUTF8(string(buf[:cut]), string(utf8.RuneError))
}

// Flush returns whatever is still held. A truncated sequence decodes to the
// replacement character.
func (d *Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	s := strings.ToValidUTF8(string(d.pending), string(utf8.RuneError))
	d.pending = nil
	return s
}
