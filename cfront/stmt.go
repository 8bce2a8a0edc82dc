package cfront

import (
	"github.com/benbjohnson/ntbounds/ast"
	sitter "github.com/smacker/go-tree-sitter"
)

// compound translates a compound statement in a new scope.
func (t *translator) compound(n *sitter.Node) (*ast.CompoundStmt, error) {
	t.pushScope()
	defer t.popScope()

	list, err := t.children(n, nil)
	if err != nil {
		return nil, err
	}
	return &ast.CompoundStmt{List: list}, nil
}

// children translates the named children of n except skip.
func (t *translator) children(n, skip *sitter.Node) ([]ast.Stmt, error) {
	var list []ast.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if skip != nil && child.StartByte() == skip.StartByte() && child.Type() == skip.Type() {
			continue
		}

		stmts, err := t.stmts(child)
		if err != nil {
			return nil, err
		}
		list = append(list, stmts...)
	}
	return list, nil
}

// stmt translates n to a single statement.
func (t *translator) stmt(n *sitter.Node) (ast.Stmt, error) {
	list, err := t.stmts(n)
	if err != nil {
		return nil, err
	} else if len(list) == 1 {
		return list[0], nil
	}
	return &ast.CompoundStmt{List: list}, nil
}

// stmts translates n. Case labels and trailing where clauses expand to more
// than one statement.
func (t *translator) stmts(n *sitter.Node) ([]ast.Stmt, error) {
	switch n.Type() {
	case "comment":
		return nil, nil

	case "compound_statement":
		s, err := t.compound(n)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{s}, nil

	case "declaration":
		s, err := t.declaration(n)
		if err != nil {
			return nil, err
		}
		return []ast.Stmt{s}, nil

	case "expression_statement":
		return t.expressionStatement(n)

	case "case_statement":
		return t.caseStatement(n)
	}

	s, err := t.controlStmt(n)
	if err != nil {
		return nil, err
	}
	return []ast.Stmt{s}, nil
}

func (t *translator) controlStmt(n *sitter.Node) (ast.Stmt, error) {
	switch n.Type() {
	case "if_statement":
		cond, err := t.cond(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		then, err := t.stmt(n.ChildByFieldName("consequence"))
		if err != nil {
			return nil, err
		}

		s := &ast.IfStmt{Cond: cond, Then: then}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == "else_clause" {
				alt = alt.NamedChild(0)
			}
			if s.Else, err = t.stmt(alt); err != nil {
				return nil, err
			}
		}
		return s, nil

	case "while_statement":
		cond, err := t.cond(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		body, err := t.stmt(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{Cond: cond, Body: body}, nil

	case "do_statement":
		body, err := t.stmt(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		cond, err := t.cond(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		return &ast.DoStmt{Body: body, Cond: cond}, nil

	case "for_statement":
		return t.forStatement(n)

	case "switch_statement":
		cond, err := t.cond(n.ChildByFieldName("condition"))
		if err != nil {
			return nil, err
		}
		body, err := t.stmt(n.ChildByFieldName("body"))
		if err != nil {
			return nil, err
		}
		return &ast.SwitchStmt{Cond: cond, Body: body}, nil

	case "break_statement":
		return &ast.BreakStmt{}, nil

	case "continue_statement":
		return &ast.ContinueStmt{}, nil

	case "return_statement":
		s := &ast.ReturnStmt{}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if child := n.NamedChild(i); child.Type() != "comment" {
				e, err := t.rvalue(child)
				if err != nil {
					return nil, err
				}
				s.Result = e
			}
		}
		return s, nil

	default:
		return nil, t.unsupported(n)
	}
}

func (t *translator) forStatement(n *sitter.Node) (ast.Stmt, error) {
	t.pushScope()
	defer t.popScope()

	s := &ast.ForStmt{}
	if init := n.ChildByFieldName("initializer"); init != nil {
		var err error
		if init.Type() == "declaration" {
			s.Init, err = t.declaration(init)
		} else {
			s.Init, err = t.expr(init)
		}
		if err != nil {
			return nil, err
		}
	}

	if cond := n.ChildByFieldName("condition"); cond != nil {
		e, err := t.rvalue(cond)
		if err != nil {
			return nil, err
		}
		s.Cond = e
	}

	if update := n.ChildByFieldName("update"); update != nil {
		e, err := t.expr(update)
		if err != nil {
			return nil, err
		}
		s.Inc = e
	}

	body, err := t.stmt(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	s.Body = body
	return s, nil
}

// cond translates the parenthesized condition of a statement.
func (t *translator) cond(n *sitter.Node) (ast.Expr, error) {
	if n.Type() == "parenthesized_expression" {
		n = n.NamedChild(0)
	}
	return t.rvalue(n)
}

func (t *translator) declaration(n *sitter.Node) (*ast.DeclStmt, error) {
	base, err := t.typ(n.ChildByFieldName("type"))
	if err != nil {
		return nil, err
	}

	s := &ast.DeclStmt{}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "primitive_type", "sized_type_specifier", "type_qualifier", "storage_class_specifier", "comment":
			continue
		}

		d, init := child, (*sitter.Node)(nil)
		if child.Type() == "init_declarator" {
			d, init = child.ChildByFieldName("declarator"), child.ChildByFieldName("value")
		}

		name, typ, err := t.declarator(base, d)
		if err != nil {
			return nil, err
		}
		v := t.newVar(t.content(name), typ, false)
		if err := t.resolveBounds(v, name); err != nil {
			return nil, err
		}

		if init != nil {
			if init.Type() == "initializer_list" {
				return nil, t.unsupported(init)
			}
			if v.Init, err = t.rvalue(init); err != nil {
				return nil, err
			}
		}
		s.Decls = append(s.Decls, v)
	}

	if s.Where, err = t.where(n.EndByte()); err != nil {
		return nil, err
	}
	return s, nil
}

// expressionStatement translates "e;" or ";". A where clause attached to an
// expression statement follows it as a null statement.
func (t *translator) expressionStatement(n *sitter.Node) ([]ast.Stmt, error) {
	where, err := t.where(n.EndByte())
	if err != nil {
		return nil, err
	}

	var list []ast.Stmt
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		e, err := t.expr(child)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}

	if len(list) == 0 || where != nil {
		list = append(list, &ast.NullStmt{Where: where})
	}
	return list, nil
}

// caseStatement translates a case or default label. The first statement
// after the label becomes its sub-statement and the rest follow it.
func (t *translator) caseStatement(n *sitter.Node) ([]ast.Stmt, error) {
	value := n.ChildByFieldName("value")
	list, err := t.children(n, value)
	if err != nil {
		return nil, err
	}

	var sub ast.Stmt = &ast.NullStmt{}
	if len(list) > 0 {
		sub, list = list[0], list[1:]
	}

	var label ast.Stmt
	if value == nil {
		label = &ast.DefaultStmt{Sub: sub}
	} else {
		lhs, err := t.rvalue(value)
		if err != nil {
			return nil, err
		}
		label = &ast.CaseStmt{LHS: lhs, Sub: sub}
	}
	return append([]ast.Stmt{label}, list...), nil
}
