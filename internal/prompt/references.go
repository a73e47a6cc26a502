package prompt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rajatsrma/promptcraft/internal/browser"
)

// A reference is "@path", "@path:START-END" or "@path#name1,name2". It must
// start the text or follow whitespace so that e-mail addresses are not
// mistaken for references.
var referencePattern = regexp.MustCompile(`(^|\s)@([\w./-]*\w)(?::(\d+)-(\d+)|#([\w.]+(?:,[\w.]+)*))?`)

// ExpandReferences replaces file references in text with fenced code blocks
// built from b. References that do not resolve to a readable file, a valid
// line range or an existing chunk are left as written.
func ExpandReferences(text string, b *browser.Browser) string {
	if b == nil || !strings.Contains(text, "@") {
		return text
	}
	return referencePattern.ReplaceAllStringFunc(text, func(match string) string {
		m := referencePattern.FindStringSubmatch(match)
		lead, path := m[1], m[2]

		sel, err := resolve(b, path, m[3], m[4], m[5])
		if err != nil || sel.File.IsBinary {
			return match
		}
		return lead + sel.Markdown()
	})
}

// References lists the file paths referenced in text, in order of first
// appearance.
func References(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range referencePattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[2]] {
			seen[m[2]] = true
			out = append(out, m[2])
		}
	}
	return out
}

func resolve(b *browser.Browser, path, start, end, chunks string) (*browser.FileSelection, error) {
	switch {
	case start != "":
		s, err := strconv.Atoi(start)
		if err != nil {
			return nil, err
		}
		e, err := strconv.Atoi(end)
		if err != nil {
			return nil, err
		}
		return b.SelectLines(path, s, e)
	case chunks != "":
		return b.SelectChunks(path, strings.Split(chunks, ","))
	default:
		return b.SelectWholeFile(path)
	}
}
