package bytecode

import (
	"errors"
	"fmt"

	"github.com/Ninjaclasher/soren/internal/span"
)

// Sentinel errors making up the decoder's slice of the taxonomy in
// SPEC_FULL.md §7. Use errors.Is against these; Decode wraps them with
// byte-offset context.
var (
	ErrInvalidOpcode      = errors.New("invalid opcode")
	ErrWrongDialect       = errors.New("opcode not valid in this dialect")
	ErrTruncatedOperand   = errors.New("truncated operand")
	ErrUnterminatedScript = errors.New("script ran out of bytes without reaching a return")
)

// Instruction is one decoded opcode: its byte offset, its opcode, and its
// operand. For jump opcodes Operand has already been absolutized to a
// target byte offset; for OpCALLEXT it is the packed
// (string_pool_offset<<8)|argc; otherwise it is the raw sign-extended
// immediate.
type Instruction struct {
	Location int
	Opcode   Op
	Operand  int32
}

// IsJump reports whether the instruction is one of the five jump opcodes.
func (ins Instruction) IsJump() bool {
	d, ok := Lookup(ins.Opcode)
	return ok && d.IsJump
}

// IsBranchKeep reports whether the instruction is BKN/BKY.
func (ins Instruction) IsBranchKeep() bool {
	return IsBranchKeep(ins.Opcode)
}

// IsReturn reports whether the instruction is one of the three return
// forms (RETURN, RETN, RETY).
func (ins Instruction) IsReturn() bool {
	return ins.Opcode == OpRETURN || ins.Opcode == OpRETN || ins.Opcode == OpRETY
}

// Decode linearly decodes a single script body into its instruction
// sequence, resolving jump targets to absolute byte offsets and validating
// every opcode against dialect. See SPEC_FULL.md §4.1.
func Decode(data span.Bytes, dialect Dialect) ([]Instruction, error) {
	var result []Instruction

	i := 0
	lastJump := 0
	size := data.Len()

	for i < size {
		loc := i
		opByte := data.At(i)
		i++

		op := Op(opByte)
		desc, ok := Lookup(op)
		if !ok {
			return nil, fmt.Errorf("%w: 0x%02x at offset %d", ErrInvalidOpcode, opByte, loc)
		}
		if !desc.ValidIn(dialect) {
			return nil, fmt.Errorf("%w: %s at offset %d is not valid in %s", ErrWrongDialect, desc.Mnemonic, loc, dialect)
		}

		var operand int32
		if desc.OperandSize > 0 {
			if i+desc.OperandSize > size {
				return nil, fmt.Errorf("%w: %s at offset %d wants %d bytes", ErrTruncatedOperand, desc.Mnemonic, loc, desc.OperandSize)
			}
			raw, err := span.DecodeBE(data.Sub(i, desc.OperandSize))
			if err != nil {
				return nil, err
			}
			operand = span.SignExtend(uint32(raw), uint(desc.OperandSize)*8)
			i += desc.OperandSize

			if dialect == D10 && op == OpCALL && operand&0x80 != 0 {
				if i >= size {
					return nil, fmt.Errorf("%w: variable-length call at offset %d wants 1 more byte", ErrTruncatedOperand, loc)
				}
				operand = ((operand & 0x7F) << 8) | int32(data.At(i))
				i++
			}
		}

		switch op {
		case OpB, OpBY, OpBKY, OpBN, OpBKN:
			target := i + int(operand) - desc.OperandSize
			operand = int32(target)
			if target > lastJump {
				lastJump = target
			}
		}

		result = append(result, Instruction{Location: loc, Opcode: op, Operand: operand})

		switch op {
		case OpRETURN, OpRETN, OpRETY:
			if i > lastJump {
				return result, nil
			}
		}
	}

	if len(result) == 0 || !result[len(result)-1].IsReturn() {
		return nil, ErrUnterminatedScript
	}
	return result, nil
}
