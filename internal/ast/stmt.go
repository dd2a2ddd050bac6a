package ast

import "strconv"

// StmtKind tags the variant of a Stmt.
type StmtKind int

const (
	StmtInvalid StmtKind = iota
	StmtPush             // Children[0]: value being left on the simulated stack
	StmtExpr             // Children[0]: a side-effecting expression, discarded
	StmtGoto             // Children[0]: target label (an ExprNamed)
	StmtGotoIf           // Children[0]: target label, Children[1]: condition
	StmtYield
	StmtReturn // Children[0]: returned value
)

// Stmt is one statement in a slice's lowered output.
type Stmt struct {
	Kind     StmtKind
	Children []*Expr
}

// Push wraps an expression sitting on top of the simulated stack.
func Push(e *Expr) *Stmt {
	return &Stmt{Kind: StmtPush, Children: []*Expr{e}}
}

// ExprStmt turns an expression into a standalone, side-effecting
// statement.
func ExprStmt(e *Expr) *Stmt {
	return &Stmt{Kind: StmtExpr, Children: []*Expr{e}}
}

// Goto builds an unconditional jump to label_<target>.
func Goto(target int32) *Stmt {
	return &Stmt{Kind: StmtGoto, Children: []*Expr{labelExpr(target)}}
}

// GotoIf builds a conditional jump to label_<target>.
func GotoIf(target int32, cond *Expr) *Stmt {
	return &Stmt{Kind: StmtGotoIf, Children: []*Expr{labelExpr(target), cond}}
}

// Yield builds the parameterless yield statement.
func Yield() *Stmt {
	return &Stmt{Kind: StmtYield}
}

// Return builds a return statement.
func Return(e *Expr) *Stmt {
	return &Stmt{Kind: StmtReturn, Children: []*Expr{e}}
}

func labelExpr(target int32) *Expr {
	return NamedExpr(LabelName(target))
}

// LabelName synthesizes the identifier a jump to the given byte offset
// resolves to. The stack simulator and the emitter must agree on this
// naming, since the simulator emits Goto/GotoIf nodes carrying the name
// and the emitter decides independently where to print the matching
// "label_N:" line.
func LabelName(target int32) string {
	return "label_" + strconv.FormatInt(int64(target), 10)
}
