package ir

import (
	"strings"
)

const indentUnit = "    "

// Format renders s as C-like text. It is meant for diagnostics and tests,
// not as a host-language printer.
func Format(s Stmt) string {
	p := &printer{}
	p.stmt(s, 0)
	return strings.TrimRight(p.sb.String(), "\n")
}

// FormatDecls renders flag and temporary declarations, one per line.
func FormatDecls(decls []Decl) string {
	lines := make([]string, len(decls))
	for i, d := range decls {
		lines[i] = d.String() + ";"
	}
	return strings.Join(lines, "\n")
}

type printer struct {
	sb strings.Builder
}

func (p *printer) line(depth int, text string) {
	p.sb.WriteString(strings.Repeat(indentUnit, depth))
	p.sb.WriteString(text)
	p.sb.WriteByte('\n')
}

func (p *printer) block(b *Block, depth int) {
	for _, s := range b.Stmts {
		p.stmt(s, depth)
	}
}

func labelPrefix(name string) string {
	if name == "" {
		return ""
	}
	return name + ": "
}

func (p *printer) stmt(s Stmt, depth int) {
	switch s := s.(type) {
	case *Block:
		p.line(depth, "{")
		p.block(s, depth+1)
		p.line(depth, "}")
	case *If:
		if len(s.Then.Stmts) == 1 && s.Else == nil {
			if g, ok := s.Then.Stmts[0].(*Goto); ok {
				p.line(depth, "if ("+s.Cond.String()+") goto "+g.Label+";")
				return
			}
		}
		p.line(depth, "if ("+s.Cond.String()+") {")
		p.block(s.Then, depth+1)
		if s.Else != nil {
			p.line(depth, "} else {")
			p.block(s.Else, depth+1)
		}
		p.line(depth, "}")
	case *While:
		p.line(depth, labelPrefix(s.Label)+"while ("+s.Cond.String()+") {")
		p.block(s.Body, depth+1)
		p.line(depth, "}")
	case *For:
		header := labelPrefix(s.Label) + "for (" + simple(s.Init) + "; "
		if s.Cond != nil {
			header += s.Cond.String()
		}
		header += "; " + simple(s.Post) + ") {"
		p.line(depth, header)
		p.block(s.Body, depth+1)
		p.line(depth, "}")
	case *DoWhile:
		p.line(depth, labelPrefix(s.Label)+"do {")
		p.block(s.Body, depth+1)
		p.line(depth, "} while ("+s.Cond.String()+");")
	case *Switch:
		if s.Tag != nil {
			p.line(depth, labelPrefix(s.Label)+"switch ("+s.Tag.String()+") {")
		} else {
			p.line(depth, labelPrefix(s.Label)+"switch {")
		}
		for _, c := range s.Cases {
			if c.IsDefault() {
				p.line(depth, "default:")
			} else {
				exprs := make([]string, len(c.Exprs))
				for i, e := range c.Exprs {
					exprs[i] = e.String()
				}
				p.line(depth, "case "+strings.Join(exprs, ", ")+":")
			}
			p.block(c.Body, depth+1)
		}
		p.line(depth, "}")
	case *Label:
		p.line(depth, s.Name+":")
	default:
		p.line(depth, simple(s)+";")
	}
}

// simple renders a statement that fits on one line.
func simple(s Stmt) string {
	switch s := s.(type) {
	case nil:
		return ""
	case *Goto:
		return "goto " + s.Label
	case *Action:
		return s.X.String()
	case *Assign:
		if s.Define {
			return s.Name + " := " + s.Value.String()
		}
		return s.Name + " = " + s.Value.String()
	case *IncDec:
		if s.Dec {
			return s.Name + "--"
		}
		return s.Name + "++"
	case *Return:
		if len(s.Results) == 0 {
			return "return"
		}
		results := make([]string, len(s.Results))
		for i, r := range s.Results {
			results[i] = r.String()
		}
		return "return " + strings.Join(results, ", ")
	case *Break:
		if s.Label != "" {
			return "break " + s.Label
		}
		return "break"
	case *Continue:
		if s.Label != "" {
			return "continue " + s.Label
		}
		return "continue"
	case *Opaque:
		return s.Text
	case *Label:
		return s.Name + ":"
	}
	return "<compound>"
}
