// Package dump renders statement trees as ASCII art for the dump command.
package dump

import (
	"fmt"
	"io"
	"strings"

	asciitree "github.com/thediveo/go-asciitree"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

type node struct {
	Label    string   `asciitree:"label"`
	Props    []string `asciitree:"properties"`
	Children []node   `asciitree:"children"`
}

// Render draws b one statement per node. Conditions, loop labels and
// source positions are shown as properties.
func Render(b *ir.Block) string {
	return asciitree.RenderFancy(convert(b))
}

// Fprint writes Render(b) followed by the declarations, if any.
func Fprint(w io.Writer, b *ir.Block, decls []ir.Decl) error {
	if _, err := fmt.Fprintln(w, Render(b)); err != nil {
		return err
	}
	for _, d := range decls {
		if _, err := fmt.Fprintln(w, d); err != nil {
			return err
		}
	}
	return nil
}

func convert(s ir.Stmt) node {
	n := node{Label: kind(s)}
	if lbl := ir.LoopLabel(s); lbl != "" {
		n.Props = append(n.Props, "label: "+lbl)
	}

	switch s := s.(type) {
	case *ir.Block:
		n.Children = stmts(s)
	case *ir.If:
		n.Props = append(n.Props, "cond: "+s.Cond.String())
		n.Children = append(n.Children, branch("then", s.Then))
		if s.Else != nil {
			n.Children = append(n.Children, branch("else", s.Else))
		}
	case *ir.While:
		n.Props = append(n.Props, "cond: "+s.Cond.String())
		n.Children = stmts(s.Body)
	case *ir.For:
		if s.Init != nil {
			n.Props = append(n.Props, "init: "+oneLine(s.Init))
		}
		if s.Cond != nil {
			n.Props = append(n.Props, "cond: "+s.Cond.String())
		}
		if s.Post != nil {
			n.Props = append(n.Props, "post: "+oneLine(s.Post))
		}
		n.Children = stmts(s.Body)
	case *ir.DoWhile:
		n.Props = append(n.Props, "cond: "+s.Cond.String())
		n.Children = stmts(s.Body)
	case *ir.Switch:
		if s.Tag != nil {
			n.Props = append(n.Props, "tag: "+s.Tag.String())
		}
		for _, c := range s.Cases {
			name := "default"
			if !c.IsDefault() {
				parts := make([]string, len(c.Exprs))
				for i, e := range c.Exprs {
					parts[i] = e.String()
				}
				name = "case " + strings.Join(parts, ", ")
			}
			n.Children = append(n.Children, branch(name, c.Body))
		}
	default:
		n.Label = oneLine(s)
	}

	if pos := s.Position(); pos.Line > 0 {
		n.Props = append(n.Props, "pos: "+pos.String())
	}
	return n
}

func branch(name string, b *ir.Block) node {
	return node{Label: name, Children: stmts(b)}
}

func stmts(b *ir.Block) []node {
	out := make([]node, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		out = append(out, convert(s))
	}
	return out
}

func kind(s ir.Stmt) string {
	switch s.(type) {
	case *ir.Block:
		return "block"
	case *ir.If:
		return "if"
	case *ir.While:
		return "while"
	case *ir.For:
		return "for"
	case *ir.DoWhile:
		return "do-while"
	case *ir.Switch:
		return "switch"
	}
	return ""
}

// oneLine formats a simple statement without its trailing semicolon.
func oneLine(s ir.Stmt) string {
	return strings.TrimSuffix(strings.TrimSpace(ir.Format(s)), ";")
}
