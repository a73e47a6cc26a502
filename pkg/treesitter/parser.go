// Package treesitter wraps go-tree-sitter for the grammar-backed chunkers.
package treesitter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

var (
	ErrUnsupported = errors.New("unsupported language")
	ErrSyntax      = errors.New("syntax error")
)

var grammars = map[string]func() *sitter.Language{
	"python": python.GetLanguage,
}

var extensionLanguages = map[string]string{
	".py":  "python",
	".pyw": "python",
	".pyi": "python",
}

// LanguageForPath returns the grammar name for path's extension, or "".
func LanguageForPath(path string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(path))]
}

// Supported reports whether a grammar is available for language.
func Supported(language string) bool {
	_, ok := grammars[language]
	return ok
}

// Parser parses source in one language. It is safe for concurrent use;
// parses are serialized.
type Parser struct {
	mu       sync.Mutex
	parser   *sitter.Parser
	language string
}

// New creates a parser for language.
func New(language string) (*Parser, error) {
	if !Supported(language) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, language)
	}
	p := sitter.NewParser()
	p.SetLanguage(grammars[language]())
	return &Parser{parser: p, language: language}, nil
}

// Parse returns the syntax tree for code. The caller closes the tree.
func (p *Parser) Parse(ctx context.Context, code []byte) (*sitter.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.language, err)
	}
	return tree, nil
}

// ParseStrict is Parse for callers that cannot use a partial tree: a tree
// with error or missing nodes is closed and ErrSyntax returned, naming the
// first bad line.
func (p *Parser) ParseStrict(ctx context.Context, code []byte) (*sitter.Tree, error) {
	tree, err := p.Parse(ctx, code)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	if !root.HasError() {
		return tree, nil
	}
	defer tree.Close()
	if bad := FirstError(root); bad != nil {
		return nil, fmt.Errorf("%w at line %d", ErrSyntax, bad.StartPoint().Row+1)
	}
	return nil, ErrSyntax
}

// FirstError returns the first ERROR or MISSING node under n in document
// order, or nil.
func FirstError(n *sitter.Node) *sitter.Node {
	if n == nil || !n.HasError() {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := FirstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return n
}
