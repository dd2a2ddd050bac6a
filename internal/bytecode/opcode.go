// Package bytecode describes the POR instruction set: the static opcode
// table, the two dialects (D9, D10) it is valid under, and the linear
// decoder that turns a script's raw bytes into a sequence of Instructions.
package bytecode

import "fmt"

// Dialect selects which opcode set a script is decoded against. D10 is a
// superset of D9: every D9 opcode keeps its meaning, D10 adds INC, DEC,
// DUP, RETN, RETY, ASSIGN and the variable-length CALL encoding.
type Dialect int

const (
	D9 Dialect = iota
	D10
)

func (d Dialect) String() string {
	if d == D10 {
		return "D10"
	}
	return "D9"
}

// Op is a single opcode byte, or one of the two synthetic opcodes
// produced by the short-circuit lowering pass.
type Op uint8

const (
	OpNOP Op = 0x00

	OpVAL8   Op = 0x01
	OpVAL16  Op = 0x02
	OpVALX8  Op = 0x03
	OpVALX16 Op = 0x04
	OpVALY8  Op = 0x05
	OpVALY16 Op = 0x06
	OpREF8   Op = 0x07
	OpREF16  Op = 0x08
	OpREFX8  Op = 0x09
	OpREFX16 Op = 0x0A
	OpREFY8  Op = 0x0B
	OpREFY16 Op = 0x0C

	OpGVAL8   Op = 0x0D
	OpGVAL16  Op = 0x0E
	OpGVALX8  Op = 0x0F
	OpGVALX16 Op = 0x10
	OpGVALY8  Op = 0x11
	OpGVALY16 Op = 0x12
	OpGREF8   Op = 0x13
	OpGREF16  Op = 0x14
	OpGREFX8  Op = 0x15
	OpGREFX16 Op = 0x16
	OpGREFY8  Op = 0x17
	OpGREFY16 Op = 0x18

	OpNUMBER8  Op = 0x19
	OpNUMBER16 Op = 0x1A
	OpNUMBER32 Op = 0x1B
	OpSTRING8  Op = 0x1C
	OpSTRING16 Op = 0x1D
	OpSTRING32 Op = 0x1E

	OpDEREF Op = 0x1F
	OpDISC  Op = 0x20
	OpSTORE Op = 0x21

	OpADD Op = 0x22
	OpSUB Op = 0x23
	OpMUL Op = 0x24
	OpDIV Op = 0x25
	OpMOD Op = 0x26
	OpNEG Op = 0x27
	OpMVN Op = 0x28
	OpNOT Op = 0x29
	OpORR Op = 0x2A
	OpAND Op = 0x2B
	OpXOR Op = 0x2C
	OpLSL Op = 0x2D
	OpLSR Op = 0x2E

	OpEQ     Op = 0x2F
	OpNE     Op = 0x30
	OpLT     Op = 0x31
	OpLE     Op = 0x32
	OpGT     Op = 0x33
	OpGE     Op = 0x34
	OpEQSTR  Op = 0x35
	OpNESTR  Op = 0x36

	OpCALL    Op = 0x37
	OpCALLEXT Op = 0x38
	OpRETURN  Op = 0x39

	OpB   Op = 0x3A
	OpBY  Op = 0x3B
	OpBKY Op = 0x3C
	OpBN  Op = 0x3D
	OpBKN Op = 0x3E

	OpYIELD Op = 0x3F
	Op40    Op = 0x40 // dummied debug opcode: no-op, still consumes a 4-byte operand
	OpPRINTF Op = 0x41

	// D10 only.
	OpINC    Op = 0x42
	OpDEC    Op = 0x43
	OpDUP    Op = 0x44
	OpRETN   Op = 0x45
	OpRETY   Op = 0x46
	OpASSIGN Op = 0x47

	// Synthetic: produced by short-circuit lowering, never present in
	// input bytes; the decoder's dialect check rejects them under both
	// dialects.
	OpLAND Op = 0x48
	OpLORR Op = 0x49
)

// Descriptor is the static, per-opcode metadata the decoder and the
// disassembler's self-documentation (-opcodes) consult.
type Descriptor struct {
	Mnemonic    string
	OperandSize int // 0..4 bytes, encoded big-endian, sign-extended
	IsJump      bool
	InD9        bool
	InD10       bool
}

// ValidIn reports whether the opcode may appear in a script under the
// given dialect.
func (d Descriptor) ValidIn(dialect Dialect) bool {
	if dialect == D9 {
		return d.InD9
	}
	return d.InD10
}

var descriptors = [256]Descriptor{
	OpNOP: {"nop", 0, false, true, true},

	OpVAL8:  {"val", 1, false, true, true},
	OpVAL16: {"val", 2, false, true, true},
	OpVALX8:  {"valx", 1, false, true, true},
	OpVALX16: {"valx", 2, false, true, true},
	OpVALY8:  {"valy", 1, false, true, true},
	OpVALY16: {"valy", 2, false, true, true},
	OpREF8:   {"ref", 1, false, true, true},
	OpREF16:  {"ref", 2, false, true, true},
	OpREFX8:  {"refx", 1, false, true, true},
	OpREFX16: {"refx", 2, false, true, true},
	OpREFY8:  {"refy", 1, false, true, true},
	OpREFY16: {"refy", 2, false, true, true},

	OpGVAL8:   {"gval", 1, false, true, true},
	OpGVAL16:  {"gval", 2, false, true, true},
	OpGVALX8:  {"gvalx", 1, false, true, true},
	OpGVALX16: {"gvalx", 2, false, true, true},
	OpGVALY8:  {"gvaly", 1, false, true, true},
	OpGVALY16: {"gvaly", 2, false, true, true},
	OpGREF8:   {"gref", 1, false, true, true},
	OpGREF16:  {"gref", 2, false, true, true},
	OpGREFX8:  {"grefx", 1, false, true, true},
	OpGREFX16: {"grefx", 2, false, true, true},
	OpGREFY8:  {"grefy", 1, false, true, true},
	OpGREFY16: {"grefy", 2, false, true, true},

	OpNUMBER8:  {"number", 1, false, true, true},
	OpNUMBER16: {"number", 2, false, true, true},
	OpNUMBER32: {"number", 4, false, true, true},
	OpSTRING8:  {"string", 1, false, true, true},
	OpSTRING16: {"string", 2, false, true, true},
	OpSTRING32: {"string", 4, false, true, true},

	OpDEREF: {"deref", 0, false, true, true},
	OpDISC:  {"disc", 0, false, true, true},
	OpSTORE: {"store", 0, false, true, true},

	OpADD: {"add", 0, false, true, true},
	OpSUB: {"sub", 0, false, true, true},
	OpMUL: {"mul", 0, false, true, true},
	OpDIV: {"div", 0, false, true, true},
	OpMOD: {"mod", 0, false, true, true},
	OpNEG: {"neg", 0, false, true, true},
	OpMVN: {"mvn", 0, false, true, true},
	OpNOT: {"not", 0, false, true, true},
	OpORR: {"orr", 0, false, true, true},
	OpAND: {"and", 0, false, true, true},
	OpXOR: {"xor", 0, false, true, true},
	OpLSL: {"lsl", 0, false, true, true},
	OpLSR: {"lsr", 0, false, true, true},

	OpEQ:    {"eq", 0, false, true, true},
	OpNE:    {"ne", 0, false, true, true},
	OpLT:    {"lt?", 0, false, true, true},
	OpLE:    {"le", 0, false, true, true},
	OpGT:    {"gt?", 0, false, true, true},
	OpGE:    {"ge?", 0, false, true, true},
	OpEQSTR: {"eqstr", 0, false, true, true},
	OpNESTR: {"nestr", 0, false, true, true},

	OpCALL:    {"call.", 1, false, true, true},
	OpCALLEXT: {"call", 3, false, true, true},
	OpRETURN:  {"ret", 0, false, true, true},

	OpB:   {"b", 2, true, true, true},
	OpBY:  {"by", 2, true, true, true},
	OpBKY: {"bky", 2, true, true, true},
	OpBN:  {"bn", 2, true, true, true},
	OpBKN: {"bkn", 2, true, true, true},

	OpYIELD:  {"yield", 0, false, true, true},
	Op40:     {"unk", 4, false, true, true},
	OpPRINTF: {"printf", 1, false, true, true},

	OpINC:    {"inc", 0, false, false, true},
	OpDEC:    {"dec", 0, false, false, true},
	OpDUP:    {"dup", 0, false, false, true},
	OpRETN:   {"retn", 0, false, false, true},
	OpRETY:   {"rety", 0, false, false, true},
	OpASSIGN: {"assign", 0, false, false, true},

	OpLAND: {"scand", 0, false, false, false},
	OpLORR: {"scorr", 0, false, false, false},
}

// Lookup returns the descriptor for op. Opcodes with no table entry
// (everything above 0x49, the last synthetic codepoint) come back as a
// zero Descriptor and false, which Decode treats as InvalidOpcode.
func Lookup(op Op) (Descriptor, bool) {
	d := descriptors[op]
	if d.Mnemonic == "" {
		return Descriptor{}, false
	}
	return d, true
}

// IsBranchKeep reports whether op is one of the two branch-and-keep
// opcodes short-circuit lowering rewrites.
func IsBranchKeep(op Op) bool {
	return op == OpBKN || op == OpBKY
}

// AllOpcodes returns every opcode with a table entry, in ascending byte
// order, for self-documentation tooling (the CLI's -opcodes flag).
func AllOpcodes() []Op {
	var result []Op
	for i := 0; i < len(descriptors); i++ {
		if descriptors[i].Mnemonic != "" {
			result = append(result, Op(i))
		}
	}
	return result
}

func (op Op) String() string {
	if d, ok := Lookup(op); ok {
		return d.Mnemonic
	}
	return fmt.Sprintf("op(0x%02x)", byte(op))
}
