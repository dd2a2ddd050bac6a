// Package emit renders a scene's lowered statement trees as the fixed
// textual grammar: VARIABLE declarations, one EVENT block per scene, labels
// and indented statements inside.
//
// Grounded on _examples/original_source/main.cpp's emission loop, which
// walks slices in offset order and prints labels ahead of their body.
package emit

import (
	"fmt"
	"io"
	"strings"

	"github.com/Ninjaclasher/soren/internal/ast"
	"github.com/Ninjaclasher/soren/internal/bytecode"
	"github.com/Ninjaclasher/soren/internal/cmb"
	"github.com/Ninjaclasher/soren/internal/offsetmap"
	"github.com/Ninjaclasher/soren/internal/sim"
	"github.com/Ninjaclasher/soren/internal/slicer"
)

// Globals writes one "VARIABLE name;" line per global, followed by a
// blank separator line if there were any.
func Globals(w io.Writer, names []string) error {
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "VARIABLE %s;\n", name); err != nil {
			return err
		}
	}
	if len(names) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// Scene writes one "EVENT name(args) [global] { ... }" block for scene,
// slicing and short-circuit-lowering a fresh copy of its script and
// running the stack simulator over each resulting slice in turn.
func Scene(w io.Writer, container *cmb.Container, scene *cmb.Scene) error {
	header := fmt.Sprintf("EVENT %s(%s)", scene.Name, strings.Join(scene.VarNames[:scene.ArgCount], ", "))
	if scene.IsGlobal {
		header += " global"
	}
	if _, err := fmt.Fprintf(w, "%s\n{\n", header); err != nil {
		return err
	}

	labels := buildLabels(scene.Script)
	slices := slicer.Slice(scene.Script, true)

	first := true
	for _, offset := range slices.Offsets() {
		body, _ := slices.Get(offset)
		lowered, err := slicer.LowerShortCircuit(slicer.CloneForLowering(body))
		if err != nil {
			return fmt.Errorf("scene %q: %w", scene.Name, err)
		}

		stmts, err := sim.Build(container, scene, lowered)
		if err != nil {
			return fmt.Errorf("scene %q, slice at %d: %w", scene.Name, offset, err)
		}

		if !first {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		first = false

		if name, ok := labels.Get(offset); ok {
			if _, err := fmt.Fprintf(w, "  %s:\n", name); err != nil {
				return err
			}
		}

		for _, s := range stmts {
			if _, err := fmt.Fprintf(w, "  %s\n", statement(s)); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

// buildLabels populates the offset->name map from the resolved absolute
// target of every plain jump (B, BY, BN). Branch-and-keep forms (BKN/BKY)
// also carry jump operands but are skipped: short-circuit lowering
// consumes their targets.
func buildLabels(script []bytecode.Instruction) offsetmap.Map[string] {
	var labels offsetmap.Map[string]
	for _, ins := range script {
		if ins.IsJump() && !ins.IsBranchKeep() {
			labels.Set(int(ins.Operand), ast.LabelName(ins.Operand))
		}
	}
	return labels
}

func statement(s *ast.Stmt) string {
	switch s.Kind {
	case ast.StmtPush:
		return fmt.Sprintf("push %s;", expr(s.Children[0]))
	case ast.StmtExpr:
		return fmt.Sprintf("%s;", expr(s.Children[0]))
	case ast.StmtReturn:
		return fmt.Sprintf("return %s;", expr(s.Children[0]))
	case ast.StmtGoto:
		return fmt.Sprintf("goto %s;", expr(s.Children[0]))
	case ast.StmtGotoIf:
		return fmt.Sprintf("goto %s if %s;", expr(s.Children[0]), expr(s.Children[1]))
	case ast.StmtYield:
		return "yield;"
	default:
		return fmt.Sprintf("<invalid statement kind %d>", s.Kind)
	}
}

func expr(e *ast.Expr) string {
	switch e.Kind {
	case ast.ExprIntLiteral:
		return fmt.Sprintf("%d", e.Literal)
	case ast.ExprStrLiteral:
		return fmt.Sprintf("\"%s\"", e.Named)
	case ast.ExprNamed:
		return e.Named
	case ast.ExprDeref:
		return fmt.Sprintf("[%s]", expr(e.Children[0]))
	case ast.ExprAddrOf:
		return fmt.Sprintf("&%s", expr(e.Children[0]))
	case ast.ExprNeg:
		return fmt.Sprintf("-%s", expr(e.Children[0]))
	case ast.ExprNot:
		return fmt.Sprintf("!%s", expr(e.Children[0]))
	case ast.ExprBitwiseNot:
		return fmt.Sprintf("~%s", expr(e.Children[0]))
	case ast.ExprAssign:
		return fmt.Sprintf("[%s] = %s", expr(e.Children[0]), expr(e.Children[1]))
	case ast.ExprFunc:
		args := make([]string, len(e.Children))
		for i, c := range e.Children {
			args[i] = expr(c)
		}
		return fmt.Sprintf("%s(%s)", e.Named, strings.Join(args, ", "))
	default:
		if op, ok := binaryOperators[e.Kind]; ok {
			return expr(e.Children[0]) + op + expr(e.Children[1])
		}
		return fmt.Sprintf("<invalid expr kind %d>", e.Kind)
	}
}

// binaryOperators carries the exact, intentionally inconsistent spellings
// of the ordered-comparison family (the trailing "?" on Lt/Gt/Ge is a
// preserved quirk of the source VM, not a typo — see the decoder's
// dialect table for the opcodes these expressions come from).
var binaryOperators = map[ast.ExprKind]string{
	ast.ExprAdd:        " + ",
	ast.ExprSub:        " - ",
	ast.ExprMul:        " * ",
	ast.ExprDiv:        " / ",
	ast.ExprMod:        " % ",
	ast.ExprAnd:        " & ",
	ast.ExprOr:         " | ",
	ast.ExprXor:        " ^ ",
	ast.ExprLsl:        " << ",
	ast.ExprLsr:        " >> ",
	ast.ExprEq:         " == ",
	ast.ExprNe:         " != ",
	ast.ExprLe:         " <= ",
	ast.ExprLt:         " <? ",
	ast.ExprGt:         " >? ",
	ast.ExprGe:         " >=? ",
	ast.ExprEqStr:      " <=> ",
	ast.ExprNeStr:      " <!> ",
	ast.ExprLogicalAnd: " && ",
	ast.ExprLogicalOr:  " || ",
}
