package ast

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printContext is used to recover the sign of literals when printing.
var printContext = NewContext()

// String returns the C source representation of a node.
// Implicit casts are not printed.
func String(n Node) string {
	var buf bytes.Buffer
	Fprint(&buf, n)
	return buf.String()
}

// Fprint writes the C source representation of a node to w.
func Fprint(w io.Writer, n Node) error {
	p := &printer{}
	p.node(n)
	_, err := w.Write(p.buf.Bytes())
	return err
}

type printer struct {
	buf bytes.Buffer
}

func (p *printer) printf(format string, args ...interface{}) {
	fmt.Fprintf(&p.buf, format, args...)
}

func (p *printer) node(n Node) {
	switch n := n.(type) {
	case nil:
		p.buf.WriteString("<nil>")
	case Expr:
		p.expr(n)
	case Stmt:
		p.stmt(n)
	case BoundsExpr:
		p.bounds(n)
	default:
		p.printf("<%T>", n)
	}
}

func (p *printer) expr(e Expr) {
	switch e := e.(type) {
	case *DeclRefExpr:
		if e.Decl == nil {
			p.buf.WriteString("<nil>")
			return
		}
		p.buf.WriteString(e.Decl.Name)
	case *IntegerLiteral:
		v := printContext.LiteralValue(e)
		p.buf.WriteString(v.String())
		if v.Unsigned {
			p.buf.WriteString("U")
		}
	case *CharacterLiteral:
		p.buf.WriteString(quoteChar(e.Value))
	case *StringLiteral:
		p.buf.WriteString(strconv.Quote(e.Value))
	case *ParenExpr:
		p.buf.WriteString("(")
		p.expr(e.X)
		p.buf.WriteString(")")
	case *UnaryOperator:
		if e.Op.IsPostfix() {
			p.expr(e.X)
			p.buf.WriteString(e.Op.String())
			return
		}
		p.buf.WriteString(e.Op.String())
		p.expr(e.X)
	case *BinaryOperator:
		p.expr(e.LHS)
		if e.Op == COMMA {
			p.buf.WriteString(", ")
		} else {
			p.printf(" %s ", e.Op)
		}
		p.expr(e.RHS)
	case *ArraySubscriptExpr:
		p.expr(e.Base)
		p.buf.WriteString("[")
		p.expr(e.Index)
		p.buf.WriteString("]")
	case *MemberExpr:
		p.expr(e.Base)
		if e.IsArrow {
			p.buf.WriteString("->")
		} else {
			p.buf.WriteString(".")
		}
		if e.Field != nil {
			p.buf.WriteString(e.Field.Name)
		}
	case *ImplicitCastExpr:
		p.expr(e.X)
	case *CStyleCastExpr:
		p.printf("(%s)", e.Type)
		p.expr(e.X)
	case *CallExpr:
		p.expr(e.Fn)
		p.buf.WriteString("(")
		for i, arg := range e.Args {
			if i > 0 {
				p.buf.WriteString(", ")
			}
			p.expr(arg)
		}
		p.buf.WriteString(")")
	default:
		p.printf("<%T>", e)
	}
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case Expr:
		p.expr(s)
	case *DeclStmt:
		for i, d := range s.Decls {
			if i > 0 {
				p.buf.WriteString(" ")
			}
			p.decl(d)
			if i < len(s.Decls)-1 || s.Where == nil {
				p.buf.WriteString(";")
			}
		}
		if s.Where != nil {
			p.buf.WriteString(" ")
			p.where(s.Where)
			p.buf.WriteString(";")
		}
	case *NullStmt:
		if s.Where != nil {
			p.where(s.Where)
		}
		p.buf.WriteString(";")
	case *CompoundStmt:
		p.buf.WriteString("{")
		for _, child := range s.List {
			p.buf.WriteString(" ")
			p.stmt(child)
		}
		p.buf.WriteString(" }")
	case *IfStmt:
		p.buf.WriteString("if (")
		p.expr(s.Cond)
		p.buf.WriteString(")")
	case *WhileStmt:
		p.buf.WriteString("while (")
		p.expr(s.Cond)
		p.buf.WriteString(")")
	case *DoStmt:
		p.buf.WriteString("do ... while (")
		p.expr(s.Cond)
		p.buf.WriteString(")")
	case *ForStmt:
		p.buf.WriteString("for (")
		if s.Init != nil {
			p.stmt(s.Init)
		}
		p.buf.WriteString("; ")
		if s.Cond != nil {
			p.expr(s.Cond)
		}
		p.buf.WriteString("; ")
		if s.Inc != nil {
			p.expr(s.Inc)
		}
		p.buf.WriteString(")")
	case *SwitchStmt:
		p.buf.WriteString("switch (")
		p.expr(s.Cond)
		p.buf.WriteString(")")
	case *CaseStmt:
		p.buf.WriteString("case ")
		p.expr(s.LHS)
		if s.RHS != nil {
			p.buf.WriteString(" ... ")
			p.expr(s.RHS)
		}
		p.buf.WriteString(":")
	case *DefaultStmt:
		p.buf.WriteString("default:")
	case *BreakStmt:
		p.buf.WriteString("break;")
	case *ContinueStmt:
		p.buf.WriteString("continue;")
	case *ReturnStmt:
		p.buf.WriteString("return")
		if s.Result != nil {
			p.buf.WriteString(" ")
			p.expr(s.Result)
		}
		p.buf.WriteString(";")
	default:
		p.printf("<%T>", s)
	}
}

func (p *printer) decl(d *VarDecl) {
	typ := d.Type.String()
	if strings.HasSuffix(typ, "*") {
		p.printf("%s%s", typ, d.Name)
	} else if d.Type != nil && d.Type.Kind == Array {
		p.printf("%s %s[%d]", d.Type.Elem, d.Name, d.Type.Len)
	} else {
		p.printf("%s %s", typ, d.Name)
	}
	if d.Bounds != nil {
		p.buf.WriteString(" : ")
		p.bounds(d.Bounds)
	}
	if d.Init != nil {
		p.buf.WriteString(" = ")
		p.expr(d.Init)
	}
}

func (p *printer) where(w *WhereClause) {
	p.buf.WriteString("_Where ")
	for i, fact := range w.Facts {
		if i > 0 {
			p.buf.WriteString(" _And ")
		}
		p.printf("%s : ", fact.Var.Name)
		p.bounds(fact.Bounds)
	}
}

func (p *printer) bounds(b BoundsExpr) {
	switch b := b.(type) {
	case *RangeBoundsExpr:
		p.buf.WriteString("bounds(")
		p.expr(b.Lower)
		p.buf.WriteString(", ")
		p.expr(b.Upper)
		p.buf.WriteString(")")
	case *CountBoundsExpr:
		p.buf.WriteString("count(")
		p.expr(b.Count)
		p.buf.WriteString(")")
	default:
		p.printf("<%T>", b)
	}
}

// quoteChar returns the C spelling of a character constant.
func quoteChar(r rune) string {
	switch r {
	case 0:
		return `'\0'`
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case '\r':
		return `'\r'`
	case '\\':
		return `'\\'`
	case '\'':
		return `'\''`
	}
	if r < 0x20 || r == 0x7f {
		return fmt.Sprintf(`'\x%02x'`, r)
	}
	return "'" + string(r) + "'"
}
