// Package prompt assembles the sections collected by the interactive menu
// into a single Markdown prompt.
package prompt

import (
	"fmt"
	"strings"
)

// Data holds the parts of a prompt. Empty fields are omitted from the
// generated text.
type Data struct {
	Persona     string   `json:"persona"`
	Task        string   `json:"task"`
	Context     string   `json:"context"`
	Schemas     []string `json:"schemas"`
	Examples    []string `json:"examples"`
	Constraints string   `json:"constraints"`
}

// IsEmpty reports whether no section has content.
func (d Data) IsEmpty() bool {
	return d.Persona == "" && d.Task == "" && d.Context == "" &&
		len(d.Schemas) == 0 && len(d.Examples) == 0 && d.Constraints == ""
}

// Generate renders d as Markdown, one top-level heading per non-empty
// section. Schemas and examples are numbered from 1.
func Generate(d Data) string {
	var sections []string

	add := func(title, body string) {
		if body != "" {
			sections = append(sections, "# "+title+"\n\n"+body)
		}
	}

	add("Persona", d.Persona)
	add("Task", d.Task)
	add("Context", d.Context)
	add("Schemas", numbered("Schema", d.Schemas))
	add("Examples", numbered("Example", d.Examples))
	add("Constraints", d.Constraints)

	return strings.Join(sections, "\n\n")
}

func numbered(label string, items []string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("## %s %d\n\n%s", label, i+1, item)
	}
	return strings.Join(parts, "\n\n")
}

// Preview returns the first n runes of s, with "..." appended when s was
// cut.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
