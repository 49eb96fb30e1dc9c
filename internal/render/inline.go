package render

import (
	"bytes"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// inlineHighlighting highlights code spans written as `#!lang code`.
// Other code spans render as plain <code> elements.
type inlineHighlighting struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func newInlineHighlighting(style string) *inlineHighlighting {
	return &inlineHighlighting{
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
		style: styles.Get(style),
	}
}

// Extend implements goldmark.Extender.
func (h *inlineHighlighting) Extend(m goldmark.Markdown) {
	// Lower priority values win; the default HTML renderer sits at 1000.
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(h, 200),
	))
}

// RegisterFuncs implements renderer.NodeRenderer.
func (h *inlineHighlighting) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindCodeSpan, h.renderCodeSpan)
}

func (h *inlineHighlighting) renderCodeSpan(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var code bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		value := t.Segment.Value(source)
		if bytes.HasSuffix(value, []byte("\n")) {
			code.Write(value[:len(value)-1])
			code.WriteByte(' ')
		} else {
			code.Write(value)
		}
	}

	if lexer, body, ok := inlineLexer(code.Bytes()); ok {
		if it, err := lexer.Tokenise(nil, body); err == nil {
			_, _ = w.WriteString(`<code class="chroma">`)
			if err := h.formatter.Format(w, h.style, it); err != nil {
				return ast.WalkStop, err
			}
			_, _ = w.WriteString("</code>")
			return ast.WalkSkipChildren, nil
		}
	}

	_, _ = w.WriteString("<code>")
	_, _ = w.Write(util.EscapeHTML(code.Bytes()))
	_, _ = w.WriteString("</code>")
	return ast.WalkSkipChildren, nil
}

// inlineLexer recognises the `#!lang code` shebang form of a code span.
func inlineLexer(code []byte) (chroma.Lexer, string, bool) {
	if !bytes.HasPrefix(code, []byte("#!")) {
		return nil, "", false
	}
	sp := bytes.IndexByte(code, ' ')
	if sp <= 2 {
		return nil, "", false
	}
	lexer := lexers.Get(string(code[2:sp]))
	if lexer == nil {
		return nil, "", false
	}
	return chroma.Coalesce(lexer), string(code[sp+1:]), true
}
