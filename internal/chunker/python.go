package chunker

import (
	"context"
	"fmt"
	"log"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rajatsrma/promptcraft/internal/types"
	"github.com/rajatsrma/promptcraft/internal/util"
	"github.com/rajatsrma/promptcraft/pkg/treesitter"
)

// PythonChunker extracts imports, classes, methods and top-level functions
// from Python source using the tree-sitter grammar.
type PythonChunker struct {
	parser *treesitter.Parser
}

// Parse reads path and chunks it. Unreadable or syntactically invalid files
// produce a single whole-file chunk.
func (c *PythonChunker) Parse(path string) []types.CodeChunk {
	src, ok := readSource(path)
	if !ok {
		return []types.CodeChunk{unreadableChunk(path, "# Unable to read file")}
	}
	return c.ParseSource(path, src)
}

// ParseSource chunks already loaded source text.
func (c *PythonChunker) ParseSource(path, src string) []types.CodeChunk {
	code := []byte(src)
	root, tree, err := c.parse(code)
	if err != nil {
		log.Printf("[chunker] warning: %s: %v, using whole file", path, err)
		return []types.CodeChunk{wholeFileChunk(path, src)}
	}
	defer tree.Close()

	pc := pyContext{path: path, code: code, lines: util.SplitLines(src)}

	var chunks []types.CodeChunk
	if imp, ok := pc.importChunk(root); ok {
		chunks = append(chunks, imp)
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		def := unwrapDecorated(root.NamedChild(i))
		switch def.Type() {
		case "class_definition":
			chunks = append(chunks, pc.classChunks(def)...)
		case "function_definition":
			chunks = append(chunks, pc.functionChunk(def, ""))
		}
	}
	return chunks
}

func (c *PythonChunker) parse(code []byte) (*sitter.Node, *sitter.Tree, error) {
	if c.parser == nil {
		p, err := treesitter.New("python")
		if err != nil {
			return nil, nil, err
		}
		c.parser = p
	}

	tree, err := c.parser.ParseStrict(context.Background(), code)
	if err != nil {
		return nil, nil, err
	}
	return tree.RootNode(), tree, nil
}

type pyContext struct {
	path  string
	code  []byte
	lines []string
}

func (pc pyContext) span(n *sitter.Node) (start, end int) {
	start = int(n.StartPoint().Row) + 1
	end = int(n.EndPoint().Row) + 1
	if n.EndPoint().Column == 0 && end > start {
		end--
	}
	if end > len(pc.lines) {
		end = max(len(pc.lines), start)
	}
	return start, end
}

func (pc pyContext) text(start, end int) string {
	if start > len(pc.lines) {
		return ""
	}
	return strings.Join(pc.lines[start-1:end], "\n")
}

func (pc pyContext) importChunk(root *sitter.Node) (types.CodeChunk, bool) {
	first, last := 0, 0
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "import_statement", "import_from_statement", "future_import_statement":
			start, end := pc.span(n)
			if first == 0 || start < first {
				first = start
			}
			last = max(last, end)
		}
	}
	if first == 0 {
		return types.CodeChunk{}, false
	}
	return types.CodeChunk{
		Name:      "imports",
		Kind:      types.ChunkImport,
		Content:   pc.text(first, last),
		StartLine: first,
		EndLine:   last,
		FilePath:  pc.path,
	}, true
}

func (pc pyContext) classChunks(def *sitter.Node) []types.CodeChunk {
	name := fieldContent(def, "name", pc.code)
	body := def.ChildByFieldName("body")
	start, end := pc.span(def)

	chunks := []types.CodeChunk{{
		Name:       name,
		Kind:       types.ChunkClass,
		Content:    pc.text(start, end),
		StartLine:  start,
		EndLine:    end,
		FilePath:   pc.path,
		Docstring:  blockDocstring(body, pc.code),
		Signature:  "class " + name,
		Complexity: statementCount(body) + (end - start),
	}}

	if body == nil {
		return chunks
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := unwrapDecorated(body.NamedChild(i))
		if member.Type() == "function_definition" {
			chunks = append(chunks, pc.functionChunk(member, name))
		}
	}
	return chunks
}

func (pc pyContext) functionChunk(def *sitter.Node, parent string) types.CodeChunk {
	name := fieldContent(def, "name", pc.code)
	body := def.ChildByFieldName("body")
	start, end := pc.span(def)

	kind := types.ChunkFunction
	if parent != "" {
		kind = types.ChunkMethod
	}

	return types.CodeChunk{
		Name:       name,
		Kind:       kind,
		Content:    pc.text(start, end),
		StartLine:  start,
		EndLine:    end,
		FilePath:   pc.path,
		Parent:     parent,
		Docstring:  blockDocstring(body, pc.code),
		Signature:  fmt.Sprintf("def %s(%s)", name, strings.Join(positionalParams(def.ChildByFieldName("parameters"), pc.code), ", ")),
		Complexity: statementCount(body) + (end - start),
	}
}

// unwrapDecorated returns the class or function a decorated_definition
// wraps. Spans then start at the def/class line, not the first decorator.
func unwrapDecorated(n *sitter.Node) *sitter.Node {
	if n.Type() != "decorated_definition" {
		return n
	}
	if def := n.ChildByFieldName("definition"); def != nil {
		return def
	}
	return n
}

func fieldContent(n *sitter.Node, field string, code []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(code)
}

// positionalParams lists the regular parameter names: positional-only
// names before "/" are dropped and the list stops at the first *args, bare
// "*" or **kwargs.
func positionalParams(params *sitter.Node, code []byte) []string {
	var names []string
	if params == nil {
		return names
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			names = append(names, p.Content(code))
		case "default_parameter", "typed_default_parameter":
			names = append(names, fieldContent(p, "name", code))
		case "typed_parameter":
			inner := p.NamedChild(0)
			if inner == nil || inner.Type() != "identifier" {
				return names
			}
			names = append(names, inner.Content(code))
		case "positional_separator":
			names = names[:0]
		case "list_splat_pattern", "dictionary_splat_pattern", "keyword_separator":
			return names
		}
	}
	return names
}

func statementCount(block *sitter.Node) int {
	if block == nil {
		return 0
	}
	n := 0
	for i := 0; i < int(block.NamedChildCount()); i++ {
		if block.NamedChild(i).Type() != "comment" {
			n++
		}
	}
	return n
}

func blockDocstring(block *sitter.Node, code []byte) string {
	if block == nil {
		return ""
	}
	for i := 0; i < int(block.NamedChildCount()); i++ {
		first := block.NamedChild(i)
		if first.Type() == "comment" {
			continue
		}
		if first.Type() == "expression_statement" && first.NamedChildCount() > 0 {
			if expr := first.NamedChild(0); expr.Type() == "string" {
				return docstringValue(expr.Content(code))
			}
		}
		return ""
	}
	return ""
}

// docstringValue strips the string prefix and quotes from a literal and
// keeps the body verbatim, surrounding whitespace included.
func docstringValue(raw string) string {
	s := strings.TrimLeft(raw, "rRuU")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return s
}
