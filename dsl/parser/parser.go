// Package parser implements a hand-written recursive-descent parser
// for .prtcl source, producing a dsl/ast.File. The original grammar
// lived in a Boost.Spirit x3 combinator grammar; nothing in the
// example pack offers a Go parser-combinator or PEG generator, so a
// plain recursive-descent parser over a hand-written lexer is used.
package parser

import (
	"fmt"
	"strconv"

	"github.com/prtcl-go/prtcl/dsl/ast"
	"github.com/prtcl-go/prtcl/dsl/lexer"
)

// ParseError reports a syntax error with its source location.
type ParseError struct {
	Loc ast.SourceLoc
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Loc.Line, e.Loc.Col, e.Msg)
}

type parser struct {
	toks []lexer.Token
	pos  int
}

// Parse lexes and parses a complete .prtcl source file.
func Parse(src string) (*ast.File, error) {
	toks, err := lexer.All(src)
	if err != nil {
		if le, ok := err.(*lexer.Error); ok {
			return nil, &ParseError{Loc: le.Loc, Msg: le.Msg}
		}
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseFile()
}

func (p *parser) cur() lexer.Token { return p.toks[p.pos] }

func (p *parser) at(kind lexer.Kind, text string) bool {
	t := p.cur()
	return t.Kind == kind && t.Text == text
}

func (p *parser) atKeyword(text string) bool { return p.at(lexer.Keyword, text) }
func (p *parser) atPunct(text string) bool   { return p.at(lexer.Punct, text) }

func (p *parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(text string) (lexer.Token, error) {
	if !p.atPunct(text) {
		return lexer.Token{}, p.errorf("expected %q, got %q", text, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *parser) expectKeyword(text string) (lexer.Token, error) {
	if !p.atKeyword(text) {
		return lexer.Token{}, p.errorf("expected keyword %q, got %q", text, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *parser) expectIdent() (lexer.Token, error) {
	if p.cur().Kind != lexer.Ident {
		return lexer.Token{}, p.errorf("expected identifier, got %q", p.cur().Text)
	}
	return p.advance(), nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Loc: p.cur().Loc, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseFile() (*ast.File, error) {
	f := &ast.File{}
	if p.atKeyword("version") {
		p.advance()
		tok, err := p.expectIdent()
		if err != nil {
			// allow a numeric version token too
			tok = p.cur()
			p.advance()
		}
		f.Version = tok.Text
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
	}
	for p.cur().Kind != lexer.EOF {
		switch {
		case p.atKeyword("groups"):
			g, err := p.parseGroupsDecl()
			if err != nil {
				return nil, err
			}
			f.Groups = append(f.Groups, *g)
		case p.atKeyword("global"):
			g, err := p.parseGlobalDecl()
			if err != nil {
				return nil, err
			}
			f.Globals = append(f.Globals, *g)
		case p.atKeyword("scheme"):
			s, err := p.parseSchemeDecl()
			if err != nil {
				return nil, err
			}
			f.Schemes = append(f.Schemes, *s)
		default:
			return nil, p.errorf("expected top-level declaration, got %q", p.cur().Text)
		}
	}
	return f, nil
}

func (p *parser) parseGroupsDecl() (*ast.GroupsDecl, error) {
	loc := p.cur().Loc
	if _, err := p.expectKeyword("groups"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	decl := &ast.GroupsDecl{Loc: loc, Name: name.Text}
	if p.atKeyword("select") {
		p.advance()
		sel, err := p.parseSelectOr()
		if err != nil {
			return nil, err
		}
		decl.Select = sel
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
	}
	for !p.atPunct("}") {
		fd, err := p.parseFieldDecl(true)
		if err != nil {
			return nil, err
		}
		decl.Fields = append(decl.Fields, *fd)
	}
	p.advance() // }
	return decl, nil
}

func (p *parser) parseGlobalDecl() (*ast.GlobalDecl, error) {
	loc := p.cur().Loc
	if _, err := p.expectKeyword("global"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	decl := &ast.GlobalDecl{Loc: loc}
	for !p.atPunct("}") {
		fd, err := p.parseFieldDecl(false)
		if err != nil {
			return nil, err
		}
		decl.Fields = append(decl.Fields, *fd)
	}
	p.advance()
	return decl, nil
}

// parseFieldDecl parses a field declaration. withStorage selects
// between the groups-block form (`uniform|varying field ALIAS = ...`)
// and the global-block form (`field ALIAS = ...`, always Uniform).
func (p *parser) parseFieldDecl(withStorage bool) (*ast.FieldDecl, error) {
	loc := p.cur().Loc
	storage := ast.Uniform
	if withStorage {
		switch {
		case p.atKeyword("uniform"):
			p.advance()
			storage = ast.Uniform
		case p.atKeyword("varying"):
			p.advance()
			storage = ast.Varying
		default:
			return nil, p.errorf("expected 'uniform' or 'varying', got %q", p.cur().Text)
		}
	}
	if _, err := p.expectKeyword("field"); err != nil {
		return nil, err
	}
	alias, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("="); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.FieldDecl{Loc: loc, Storage: storage, Alias: alias.Text, Name: name.Text, Type: typ}, nil
}

func (p *parser) parseTypeExpr() (ast.TypeExpr, error) {
	loc := p.cur().Loc
	var dt ast.Dtype
	switch {
	case p.atKeyword("real"):
		dt = ast.Real
	case p.atKeyword("integer"):
		dt = ast.Integer
	case p.atKeyword("boolean"):
		dt = ast.Boolean
	default:
		return ast.TypeExpr{}, p.errorf("expected a dtype (real/integer/boolean), got %q", p.cur().Text)
	}
	p.advance()
	te := ast.TypeExpr{Loc: loc, Dtype: dt}
	for p.atPunct("[") {
		p.advance()
		if p.atPunct("]") {
			te.Extents = append(te.Extents, 0)
			te.RuntimeExtent = append(te.RuntimeExtent, true)
			p.advance()
			continue
		}
		numTok := p.cur()
		if numTok.Kind != lexer.Number {
			return ast.TypeExpr{}, p.errorf("expected extent number or ']', got %q", numTok.Text)
		}
		p.advance()
		n, err := strconv.Atoi(numTok.Text)
		if err != nil {
			return ast.TypeExpr{}, p.errorf("invalid extent %q", numTok.Text)
		}
		te.Extents = append(te.Extents, n)
		te.RuntimeExtent = append(te.RuntimeExtent, false)
		if _, err := p.expectPunct("]"); err != nil {
			return ast.TypeExpr{}, err
		}
	}
	return te, nil
}

// --- select expressions: and binds tighter than or, unary not tightest ---

func (p *parser) parseSelectOr() (ast.Select, error) {
	left, err := p.parseSelectAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("or") {
		loc := p.advance().Loc
		right, err := p.parseSelectAnd()
		if err != nil {
			return nil, err
		}
		left = ast.OrExpr{Loc: loc, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseSelectAnd() (ast.Select, error) {
	left, err := p.parseSelectUnary()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("and") {
		loc := p.advance().Loc
		right, err := p.parseSelectUnary()
		if err != nil {
			return nil, err
		}
		left = ast.AndExpr{Loc: loc, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseSelectUnary() (ast.Select, error) {
	if p.atKeyword("not") {
		loc := p.advance().Loc
		x, err := p.parseSelectUnary()
		if err != nil {
			return nil, err
		}
		return ast.NotExpr{Loc: loc, Expr: x}, nil
	}
	return p.parseSelectAtom()
}

func (p *parser) parseSelectAtom() (ast.Select, error) {
	loc := p.cur().Loc
	switch {
	case p.atPunct("("):
		p.advance()
		inner, err := p.parseSelectOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil
	case p.atKeyword("type"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return ast.TypeAtom{Loc: loc, Type: name.Text}, nil
	case p.atKeyword("tag"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return ast.TagAtom{Loc: loc, Tag: name.Text}, nil
	default:
		return nil, p.errorf("expected a select atom ('type', 'tag', or '('), got %q", p.cur().Text)
	}
}

func (p *parser) parseSchemeDecl() (*ast.SchemeDecl, error) {
	loc := p.cur().Loc
	if _, err := p.expectKeyword("scheme"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	decl := &ast.SchemeDecl{Loc: loc, Name: name.Text}
	for !p.atPunct("}") {
		switch {
		case p.atKeyword("groups"):
			g, err := p.parseGroupsDecl()
			if err != nil {
				return nil, err
			}
			decl.Groups = append(decl.Groups, *g)
		case p.atKeyword("global"):
			g, err := p.parseGlobalDecl()
			if err != nil {
				return nil, err
			}
			decl.Globals = append(decl.Globals, *g)
		case p.atKeyword("procedure"):
			pr, err := p.parseProcedureDecl()
			if err != nil {
				return nil, err
			}
			decl.Procedures = append(decl.Procedures, *pr)
		default:
			return nil, p.errorf("expected 'groups', 'global' or 'procedure' inside scheme, got %q", p.cur().Text)
		}
	}
	p.advance()
	return decl, nil
}

func (p *parser) parseProcedureDecl() (*ast.ProcedureDecl, error) {
	loc := p.cur().Loc
	if _, err := p.expectKeyword("procedure"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ProcedureDecl{Loc: loc, Name: name.Text, Stmts: body}, nil
}

func (p *parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for !p.atPunct("}") {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.advance()
	return stmts, nil
}

var computeOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "max=": true, "min=": true,
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	loc := p.cur().Loc
	switch {
	case p.atKeyword("compute"):
		p.advance()
		lhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		op, err := p.parseAssignOp()
		if err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return ast.ComputeStmt{Loc: loc, LHS: lhs, Op: op, RHS: rhs}, nil
	case p.atKeyword("reduce"):
		p.advance()
		lhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		op, err := p.parseAssignOp()
		if err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return ast.ReduceStmt{Loc: loc, LHS: lhs, Op: op, RHS: rhs}, nil
	case p.atKeyword("local"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		typ, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct("="); err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return ast.LocalDefStmt{Loc: loc, Name: name.Text, Type: typ, Value: val}, nil
	case p.atKeyword("foreach"):
		return p.parseForeachStmt()
	case p.atKeyword("solve"):
		return p.parseSolveStmt()
	default:
		return nil, p.errorf("expected a statement, got %q", p.cur().Text)
	}
}

func (p *parser) parseAssignOp() (string, error) {
	tok := p.cur()
	if tok.Kind != lexer.Punct || !computeOps[tok.Text] {
		return "", p.errorf("expected an assignment operator, got %q", tok.Text)
	}
	p.advance()
	return tok.Text, nil
}

func (p *parser) parseForeachStmt() (ast.Stmt, error) {
	loc := p.cur().Loc
	p.advance() // foreach
	group, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var kind ast.ForeachKind
	switch {
	case p.atKeyword("particle"):
		kind = ast.Particle
	case p.atKeyword("neighbor"):
		kind = ast.Neighbor
	default:
		return nil, p.errorf("expected 'particle' or 'neighbor', got %q", p.cur().Text)
	}
	p.advance()
	idx, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.ForeachStmt{Loc: loc, Kind: kind, Group: group.Text, Index: idx.Text, Body: body}, nil
}

// parseSolveStmt parses:
//
//	solve SOLVER TYPE over GROUP particle IDX {
//	    setup right_hand_side into b { stmt* }
//	    setup guess into x { stmt* }
//	    product system with iterate into q { stmt* }
//	    product preconditioner with iterate into y { stmt* }
//	    apply iterate { stmt* }
//	}
func (p *parser) parseSolveStmt() (ast.Stmt, error) {
	loc := p.cur().Loc
	p.advance() // solve
	solver, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("over"); err != nil {
		return nil, err
	}
	group, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("particle"); err != nil {
		return nil, err
	}
	idx, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	solve := ast.SolveStmt{Loc: loc, Solver: solver.Text, Type: typ, Group: group.Text, Index: idx.Text}
	for !p.atPunct("}") {
		switch {
		case p.atKeyword("setup"):
			p.advance()
			var target *[]ast.Stmt
			switch {
			case p.atKeyword("right_hand_side"):
				p.advance()
				target = &solve.RHS
			case p.atKeyword("guess"):
				p.advance()
				target = &solve.Guess
			default:
				return nil, p.errorf("expected 'right_hand_side' or 'guess' after 'setup', got %q", p.cur().Text)
			}
			if _, err := p.expectKeyword("into"); err != nil {
				return nil, err
			}
			if _, err := p.expectIdent(); err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			*target = body
		case p.atKeyword("product"):
			p.advance()
			var target *[]ast.Stmt
			switch {
			case p.atKeyword("system"):
				p.advance()
				target = &solve.System
			case p.atKeyword("preconditioner"):
				p.advance()
				target = &solve.Precond
			default:
				return nil, p.errorf("expected 'system' or 'preconditioner' after 'product', got %q", p.cur().Text)
			}
			if _, err := p.expectKeyword("with"); err != nil {
				return nil, err
			}
			if _, err := p.expectKeyword("iterate"); err != nil {
				return nil, err
			}
			if _, err := p.expectKeyword("into"); err != nil {
				return nil, err
			}
			if _, err := p.expectIdent(); err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			*target = body
		case p.atKeyword("apply"):
			p.advance()
			if _, err := p.expectKeyword("iterate"); err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			solve.Apply = body
		default:
			return nil, p.errorf("expected 'setup', 'product' or 'apply' inside solve block, got %q", p.cur().Text)
		}
	}
	p.advance() // }
	return solve, nil
}

// --- arithmetic expressions: + - below * /, unary - tightest ---

func (p *parser) parseExpr() (ast.Expr, error) {
	return p.parseAddSub()
}

func (p *parser) parseAddSub() (ast.Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") {
		tok := p.advance()
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Loc: tok.Loc, Op: tok.Text, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMulDiv() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("*") || p.atPunct("/") {
		tok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.BinaryExpr{Loc: tok.Loc, Op: tok.Text, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.atPunct("-") {
		loc := p.advance().Loc
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Loc: loc, Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	loc := p.cur().Loc
	switch {
	case p.atPunct("("):
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return x, nil
	case p.cur().Kind == lexer.Number:
		tok := p.advance()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, p.errorf("invalid number literal %q", tok.Text)
		}
		return ast.LiteralExpr{Loc: loc, Value: v}, nil
	case p.cur().Kind == lexer.Ident:
		name := p.advance().Text
		var typeArg *ast.TypeExpr
		if p.atPunct("<") {
			p.advance()
			te, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(">"); err != nil {
				return nil, err
			}
			typeArg = &te
		}
		if p.atPunct("(") {
			p.advance()
			var args []ast.Expr
			for !p.atPunct(")") {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.atPunct(",") {
					p.advance()
				}
			}
			p.advance()
			return ast.CallExpr{Loc: loc, Name: name, TypeArg: typeArg, Args: args}, nil
		}
		if p.atPunct("[") {
			p.advance()
			idx, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			return ast.FieldAccessExpr{Loc: loc, Alias: name, Index: idx.Text}, nil
		}
		return ast.IdentExpr{Loc: loc, Name: name}, nil
	case p.atKeyword("iterate"):
		// solve sub-blocks move their vector through the pseudo-local
		// `iterate`, which the lexer reports as a keyword
		p.advance()
		return ast.IdentExpr{Loc: loc, Name: "iterate"}, nil
	default:
		return nil, p.errorf("expected an expression, got %q", p.cur().Text)
	}
}
