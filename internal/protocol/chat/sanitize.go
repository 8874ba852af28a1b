package chat

// Sanitize normalizes a payload for terminal display: bytes outside
// printable ASCII (32–127) are dropped, runs of spaces collapse to a
// single space, and leading and trailing spaces are removed. The
// result aliases p's backing array. An empty result means the message
// carries nothing worth relaying and must be dropped.
//
// Sanitize is idempotent: sanitized input passes through unchanged.
func Sanitize(p []byte) []byte {
	out := p[:0]
	pending := false
	for _, b := range p {
		if b < 32 || b > 127 {
			continue
		}
		if b == ' ' {
			// A leading space never survives; an inner run is
			// flushed as one space when a printable byte follows.
			if len(out) > 0 {
				pending = true
			}
			continue
		}
		if pending {
			out = append(out, ' ')
			pending = false
		}
		out = append(out, b)
	}
	return out
}
