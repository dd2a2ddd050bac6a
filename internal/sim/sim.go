// Package sim is the stack simulator / AST builder: it symbolically
// executes one lowered slice's instructions against a statement list,
// producing the high-level Push/Expr/Goto/GotoIf/Yield/Return statements
// the emitter walks.
//
// There is no separate expression stack: the stack is the trailing run of
// ast.StmtPush entries at the tail of the statement list (SPEC_FULL.md
// §4.5's "stack-as-trailing-runs-of-Push"). Grounded on
// _examples/original_source/main.cpp's make_statements.
package sim

import (
	"errors"
	"fmt"

	"github.com/Ninjaclasher/soren/internal/ast"
	"github.com/Ninjaclasher/soren/internal/bytecode"
	"github.com/Ninjaclasher/soren/internal/cmb"
)

// ErrStackShape is returned when an opcode's precondition on the trailing
// run of Push statements is not met: too few entries, or an entry that
// is not a Push.
var ErrStackShape = errors.New("stack shape precondition violated")

// ErrUnsupportedOpcode is returned for an opcode the decoder accepts but
// this package has no case for. Every opcode that can reach the simulator
// after short-circuit lowering (including the two synthetic ones) is
// enumerated below; BKN/BKY have no case, since lowering rewrites them
// into LAND/LORR, so an unlowered slice holding one reports this error.
var ErrUnsupportedOpcode = errors.New("opcode unsupported by stack simulator")

// Build lowers one slice's instructions into its statement list, given
// the owning scene (for local variable names and argument counts) and the
// script-level table (for globals and the string pool, and for resolving
// internal CALL targets against sibling scenes).
func Build(script *cmb.Container, scene *cmb.Scene, slice []bytecode.Instruction) ([]*ast.Stmt, error) {
	b := &builder{script: script, scene: scene}
	for _, ins := range slice {
		if err := b.step(ins); err != nil {
			return nil, err
		}
	}
	return b.out, nil
}

type builder struct {
	script *cmb.Container
	scene  *cmb.Scene
	out    []*ast.Stmt
}

func (b *builder) push(e *ast.Expr) {
	b.out = append(b.out, ast.Push(e))
}

// expectPush requires the top statement to be a Push and hands its
// expression to fn for in-place rewriting (used by unary ops, DISC,
// RETURN, DEREF, DUP).
func (b *builder) expectPush(name string, fn func(top *ast.Stmt) error) error {
	if len(b.out) < 1 || b.out[len(b.out)-1].Kind != ast.StmtPush {
		return fmt.Errorf("%w: %q expects a value on the stack", ErrStackShape, name)
	}
	return fn(b.out[len(b.out)-1])
}

// binop pops two Push entries and pushes a single Push wrapping the
// binary expression kind; left is the deeper (first-pushed) operand.
func (b *builder) binop(name string, kind ast.ExprKind) error {
	if len(b.out) < 2 ||
		b.out[len(b.out)-1].Kind != ast.StmtPush ||
		b.out[len(b.out)-2].Kind != ast.StmtPush {
		return fmt.Errorf("%w: %q expects two values on the stack", ErrStackShape, name)
	}
	left := b.out[len(b.out)-2].Children[0]
	right := b.out[len(b.out)-1].Children[0]
	b.out = b.out[:len(b.out)-2]
	b.push(ast.Binary(kind, left, right))
	return nil
}

func (b *builder) unop(name string, kind ast.ExprKind) error {
	return b.expectPush(name, func(top *ast.Stmt) error {
		top.Children[0] = ast.Unary(kind, top.Children[0])
		return nil
	})
}

// call requires the top n entries to be Push, consumes them in stack
// order (deepest first, matching source argument order) and pushes a
// single Func call expression.
func (b *builder) call(name string, argc int) error {
	if argc < 0 || len(b.out) < argc {
		return fmt.Errorf("%w: call to %q expects %d values on the stack", ErrStackShape, name, argc)
	}
	start := len(b.out) - argc
	args := make([]*ast.Expr, argc)
	for i := 0; i < argc; i++ {
		if b.out[start+i].Kind != ast.StmtPush {
			return fmt.Errorf("%w: call to %q expects %d pushed values", ErrStackShape, name, argc)
		}
		args[i] = b.out[start+i].Children[0]
	}
	b.out = b.out[:start]
	b.push(ast.Call(name, args))
	return nil
}

func (b *builder) local(i int32) string  { return b.scene.VarNames[i] }
func (b *builder) global(i int32) string { return b.script.GlobalNames[i] }

// addrOf builds the &name node the REF/VAL family of opcodes (local and
// global) is built out of.
func addrOf(name string) *ast.Expr { return ast.Unary(ast.ExprAddrOf, ast.NamedExpr(name)) }

func (b *builder) step(ins bytecode.Instruction) error {
	switch ins.Opcode {

	case bytecode.OpNOP, bytecode.Op40:
		// no-op; Op40's operand is consumed by the decoder and ignored here.

	case bytecode.OpVAL8, bytecode.OpVAL16:
		b.push(ast.NamedExpr(b.local(ins.Operand)))

	case bytecode.OpVALX8, bytecode.OpVALX16:
		name := b.local(ins.Operand)
		return b.expectPush("valx", func(top *ast.Stmt) error {
			top.Children[0] = ast.Unary(ast.ExprDeref,
				ast.Binary(ast.ExprAdd, addrOf(name), top.Children[0]))
			return nil
		})

	case bytecode.OpVALY8, bytecode.OpVALY16:
		name := b.local(ins.Operand)
		return b.expectPush("valy", func(top *ast.Stmt) error {
			top.Children[0] = ast.Unary(ast.ExprDeref,
				ast.Binary(ast.ExprAdd, ast.Unary(ast.ExprDeref, addrOf(name)), top.Children[0]))
			return nil
		})

	case bytecode.OpREF8, bytecode.OpREF16:
		b.push(addrOf(b.local(ins.Operand)))

	case bytecode.OpREFX8, bytecode.OpREFX16:
		name := b.local(ins.Operand)
		return b.expectPush("refx", func(top *ast.Stmt) error {
			top.Children[0] = ast.Binary(ast.ExprAdd, addrOf(name), top.Children[0])
			return nil
		})

	case bytecode.OpREFY8, bytecode.OpREFY16:
		name := b.local(ins.Operand)
		return b.expectPush("refy", func(top *ast.Stmt) error {
			top.Children[0] = ast.Binary(ast.ExprAdd, ast.Unary(ast.ExprDeref, addrOf(name)), top.Children[0])
			return nil
		})

	case bytecode.OpGVAL8, bytecode.OpGVAL16:
		b.push(ast.NamedExpr(b.global(ins.Operand)))

	case bytecode.OpGVALX8, bytecode.OpGVALX16:
		name := b.global(ins.Operand)
		return b.expectPush("gvalx", func(top *ast.Stmt) error {
			top.Children[0] = ast.Unary(ast.ExprDeref,
				ast.Binary(ast.ExprAdd, addrOf(name), top.Children[0]))
			return nil
		})

	case bytecode.OpGVALY8, bytecode.OpGVALY16:
		name := b.global(ins.Operand)
		return b.expectPush("gvaly", func(top *ast.Stmt) error {
			top.Children[0] = ast.Unary(ast.ExprDeref,
				ast.Binary(ast.ExprAdd, ast.Unary(ast.ExprDeref, addrOf(name)), top.Children[0]))
			return nil
		})

	case bytecode.OpGREF8, bytecode.OpGREF16:
		b.push(addrOf(b.global(ins.Operand)))

	case bytecode.OpGREFX8, bytecode.OpGREFX16:
		name := b.global(ins.Operand)
		return b.expectPush("grefx", func(top *ast.Stmt) error {
			top.Children[0] = ast.Binary(ast.ExprAdd, addrOf(name), top.Children[0])
			return nil
		})

	case bytecode.OpGREFY8, bytecode.OpGREFY16:
		name := b.global(ins.Operand)
		return b.expectPush("grefy", func(top *ast.Stmt) error {
			top.Children[0] = ast.Binary(ast.ExprAdd, ast.Unary(ast.ExprDeref, addrOf(name)), top.Children[0])
			return nil
		})

	case bytecode.OpNUMBER8, bytecode.OpNUMBER16, bytecode.OpNUMBER32:
		b.push(ast.IntLiteral(ins.Operand))

	case bytecode.OpSTRING8, bytecode.OpSTRING16, bytecode.OpSTRING32:
		s, err := b.script.GetCString(int(ins.Operand))
		if err != nil {
			return err
		}
		b.push(ast.StrLiteral(s))

	case bytecode.OpDEREF:
		return b.expectPush("deref", func(top *ast.Stmt) error {
			b.push(ast.Unary(ast.ExprDeref, ast.Clone(top.Children[0])))
			return nil
		})

	case bytecode.OpDISC:
		return b.expectPush("disc", func(top *ast.Stmt) error {
			top.Kind = ast.StmtExpr
			return nil
		})

	case bytecode.OpSTORE:
		return b.binop("store", ast.ExprAssign)

	case bytecode.OpADD:
		return b.binop("add", ast.ExprAdd)
	case bytecode.OpSUB:
		return b.binop("sub", ast.ExprSub)
	case bytecode.OpMUL:
		return b.binop("mul", ast.ExprMul)
	case bytecode.OpDIV:
		return b.binop("div", ast.ExprDiv)
	case bytecode.OpMOD:
		return b.binop("mod", ast.ExprMod)
	case bytecode.OpORR:
		return b.binop("orr", ast.ExprOr)
	case bytecode.OpAND:
		return b.binop("and", ast.ExprAnd)
	case bytecode.OpXOR:
		return b.binop("xor", ast.ExprXor)
	case bytecode.OpLSL:
		return b.binop("lsl", ast.ExprLsl)
	case bytecode.OpLSR:
		return b.binop("lsr", ast.ExprLsr)
	case bytecode.OpEQ:
		return b.binop("eq", ast.ExprEq)
	case bytecode.OpNE:
		return b.binop("ne", ast.ExprNe)
	case bytecode.OpLT:
		return b.binop("lt", ast.ExprLt)
	case bytecode.OpLE:
		return b.binop("le", ast.ExprLe)
	case bytecode.OpGT:
		return b.binop("gt", ast.ExprGt)
	case bytecode.OpGE:
		return b.binop("ge", ast.ExprGe)
	case bytecode.OpEQSTR:
		return b.binop("eqstr", ast.ExprEqStr)
	case bytecode.OpNESTR:
		return b.binop("nestr", ast.ExprNeStr)

	case bytecode.OpNEG:
		return b.unop("neg", ast.ExprNeg)
	case bytecode.OpNOT:
		return b.unop("not", ast.ExprNot)
	case bytecode.OpMVN:
		return b.unop("mvn", ast.ExprBitwiseNot)

	case bytecode.OpCALL:
		if int(ins.Operand) < 0 || int(ins.Operand) >= len(b.script.Scenes) {
			return fmt.Errorf("%w: call targets scene %d, have %d scenes", ErrStackShape, ins.Operand, len(b.script.Scenes))
		}
		target := &b.script.Scenes[ins.Operand]
		return b.call(target.Name, target.ArgCount)

	case bytecode.OpCALLEXT:
		name, err := b.script.GetCString(int(ins.Operand) >> 8)
		if err != nil {
			return err
		}
		return b.call(name, int(ins.Operand)&0xFF)

	case bytecode.OpRETURN:
		return b.expectPush("ret", func(top *ast.Stmt) error {
			top.Kind = ast.StmtReturn
			return nil
		})

	case bytecode.OpB:
		b.out = append(b.out, ast.Goto(ins.Operand))

	case bytecode.OpBN:
		return b.expectPush("bn", func(top *ast.Stmt) error {
			cond := ast.Unary(ast.ExprNot, top.Children[0])
			b.out = b.out[:len(b.out)-1]
			b.out = append(b.out, ast.GotoIf(ins.Operand, cond))
			return nil
		})

	case bytecode.OpBY:
		return b.expectPush("by", func(top *ast.Stmt) error {
			cond := top.Children[0]
			b.out = b.out[:len(b.out)-1]
			b.out = append(b.out, ast.GotoIf(ins.Operand, cond))
			return nil
		})

	case bytecode.OpYIELD:
		b.out = append(b.out, ast.Yield())

	case bytecode.OpPRINTF:
		if err := b.call("__printf", int(ins.Operand)); err != nil {
			return err
		}
		b.out[len(b.out)-1].Kind = ast.StmtExpr

	case bytecode.OpDUP:
		return b.expectPush("dup", func(top *ast.Stmt) error {
			b.push(ast.Clone(top.Children[0]))
			return nil
		})

	case bytecode.OpRETN:
		b.out = append(b.out, ast.Return(ast.IntLiteral(0)))

	case bytecode.OpRETY:
		b.out = append(b.out, ast.Return(ast.IntLiteral(1)))

	case bytecode.OpASSIGN:
		if err := b.binop("assign", ast.ExprAssign); err != nil {
			return err
		}
		b.out[len(b.out)-1].Kind = ast.StmtExpr

	case bytecode.OpINC:
		return b.expectPush("inc", func(top *ast.Stmt) error {
			addr := top.Children[0]
			expr := ast.Binary(ast.ExprAssign, addr,
				ast.Binary(ast.ExprAdd, ast.Unary(ast.ExprDeref, ast.Clone(addr)), ast.IntLiteral(1)))
			top.Kind = ast.StmtExpr
			top.Children[0] = expr
			return nil
		})

	case bytecode.OpDEC:
		return b.expectPush("dec", func(top *ast.Stmt) error {
			addr := top.Children[0]
			expr := ast.Binary(ast.ExprAssign, addr,
				ast.Binary(ast.ExprSub, ast.Unary(ast.ExprDeref, ast.Clone(addr)), ast.IntLiteral(1)))
			top.Kind = ast.StmtExpr
			top.Children[0] = expr
			return nil
		})

	case bytecode.OpLAND:
		return b.binop("land", ast.ExprLogicalAnd)

	case bytecode.OpLORR:
		return b.binop("lorr", ast.ExprLogicalOr)

	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnsupportedOpcode, byte(ins.Opcode))
	}

	return nil
}
