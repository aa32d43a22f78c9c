package types

// LineText returns the content of the 1-indexed line, without its newline.
// Returns nil when the line does not exist.
func LineText(content []byte, line int) []byte {
	if line < 1 {
		return nil
	}
	current := 1
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] != '\n' {
			continue
		}
		if current == line {
			return trimCR(content[start:i])
		}
		current++
		start = i + 1
	}
	if current == line && start <= len(content) {
		return trimCR(content[start:])
	}
	return nil
}

func trimCR(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return b[:n-1]
	}
	return b
}
