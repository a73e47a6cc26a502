package chunker

type scanState int

const (
	stateNormal scanState = iota
	stateString
)

// braceScanner tracks brace depth across lines while ignoring braces inside
// quoted or backtick strings. An open string carries over to the next line.
type braceScanner struct {
	state scanState
	quote byte
	depth int
}

// feed consumes one line and reports whether the brace depth has just
// returned to zero on a closing brace.
func (s *braceScanner) feed(line string) bool {
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch s.state {
		case stateString:
			switch c {
			case '\\':
				i++
			case s.quote:
				s.state = stateNormal
			}
		default:
			switch c {
			case '"', '\'', '`':
				s.state = stateString
				s.quote = c
			case '{':
				s.depth++
			case '}':
				s.depth--
				if s.depth == 0 {
					return true
				}
			}
		}
	}
	return false
}

// findBlockEnd returns the 1-based line on which the brace block starting at
// lines[start] closes. A block that never balances extends to the last line.
func findBlockEnd(lines []string, start int) int {
	var s braceScanner
	for i := start; i < len(lines); i++ {
		if s.feed(lines[i]) {
			return i + 1
		}
	}
	return len(lines)
}
