package chat

// SplitArgs extracts up to n leading space-separated tokens from a
// payload. It returns the tokens and the offset just past the last
// one, so the caller can treat the remainder as free text — the shape
// of both command payloads: "<target> <text>" for a private message
// and "<newname>" for a rename.
//
// When the payload holds fewer than n tokens the offset is -1 and the
// tokens are nil.
func SplitArgs(p []byte, n int) ([]string, int) {
	if n <= 0 {
		return nil, 0
	}
	args := make([]string, 0, n)
	i := 0
	for len(args) < n {
		for i < len(p) && p[i] == ' ' {
			i++
		}
		start := i
		for i < len(p) && p[i] != ' ' {
			i++
		}
		if start == i {
			return nil, -1
		}
		args = append(args, string(p[start:i]))
	}
	return args, i
}
