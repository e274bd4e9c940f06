// Package replytext cleans up strings that end up in SMTP reply lines.
package replytext

import (
	"strings"

	"golang.org/x/text/transform"
)

// ControlToSpaceTransformer is a [transform.Transformer] that replaces CR, LF and
// all other ASCII control characters in src with a single space in dst.
// Consecutive CR LF pairs collapse into one space so that multi-line input
// does not produce runs of blanks.
type ControlToSpaceTransformer struct {
	prevCR bool
}

func (t *ControlToSpaceTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nDst < len(dst) && nSrc < len(src) {
		c := src[nSrc]
		if c == '\n' && t.prevCR {
			t.prevCR = false
			nSrc++
			continue
		}
		t.prevCR = c == '\r'
		if c < 0x20 || c == 0x7f {
			c = ' '
		}
		dst[nDst] = c
		nDst++
		nSrc++
	}
	if nSrc < len(src) { // should never happen since we do not add data, but let's be safe
		err = transform.ErrShortDst
	}
	return
}

func (t *ControlToSpaceTransformer) Reset() {
	t.prevCR = false
}

var _ transform.Transformer = &ControlToSpaceTransformer{}

// Sanitize returns s with all control characters replaced by spaces and
// leading/trailing whitespace removed. The result is safe to embed in a
// single SMTP reply line.
func Sanitize(s string) string {
	dst, _, err := transform.String(&ControlToSpaceTransformer{}, s)
	if err != nil {
		// transform.String only fails on ErrShortDst which we never return on atEOF
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(dst)
}
