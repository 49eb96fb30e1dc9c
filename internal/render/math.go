package render

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindMath is the node kind of inline and display math.
var KindMath = ast.NewNodeKind("Math")

// mathNode holds TeX source between $ or $$ delimiters on a single line.
type mathNode struct {
	ast.BaseInline
	display bool
	content []byte
}

func (n *mathNode) Kind() ast.NodeKind { return KindMath }

func (n *mathNode) Dump(source []byte, level int) {
	kv := map[string]string{"Content": string(n.content)}
	if n.display {
		kv["Display"] = "true"
	}
	ast.DumpHelper(n, source, level, kv, nil)
}

// mathExtension passes math through untouched, wrapped in \( \) or \[ \]
// inside span.math so a client-side typesetter can pick it up.
type mathExtension struct{}

func (mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(mathParser{}, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(mathRenderer{}, 500),
	))
}

type mathParser struct{}

func (mathParser) Trigger() []byte {
	return []byte{'$'}
}

func (mathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()

	delim := 1
	if len(line) > 1 && line[1] == '$' {
		delim = 2
	}
	rest := line[delim:]

	end := closingDelimiter(rest, delim)
	if end <= 0 {
		return nil
	}
	content := rest[:end]
	// "$5 and $10" is prose, not math.
	if delim == 1 && (content[0] == ' ' || content[len(content)-1] == ' ') {
		return nil
	}

	block.Advance(2*delim + end)
	return &mathNode{
		display: delim == 2,
		content: append([]byte(nil), content...),
	}
}

// closingDelimiter returns the offset of the closing $ (or $$) in s, or -1.
func closingDelimiter(s []byte, delim int) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\n', '\r':
			return -1
		case '$':
			if delim == 1 {
				return i
			}
			if i+1 < len(s) && s[i+1] == '$' {
				return i
			}
		}
	}
	return -1
}

type mathRenderer struct{}

func (mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMath, renderMath)
}

func renderMath(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	m := n.(*mathNode)
	if m.display {
		_, _ = w.WriteString(`<span class="math display">\[`)
		_, _ = w.Write(util.EscapeHTML(m.content))
		_, _ = w.WriteString(`\]</span>`)
	} else {
		_, _ = w.WriteString(`<span class="math">\(`)
		_, _ = w.Write(util.EscapeHTML(m.content))
		_, _ = w.WriteString(`\)</span>`)
	}
	return ast.WalkSkipChildren, nil
}
