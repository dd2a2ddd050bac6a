package bytecode

import (
	"errors"
	"testing"

	"github.com/Ninjaclasher/soren/internal/span"
)

// TestDecodeTotality exercises property 1: every non-jump opcode with a
// table entry, fed [opcode, zeroed operand bytes] followed by a RETURN,
// decodes to exactly two instructions and consumes the declared operand
// width.
func TestDecodeTotality(t *testing.T) {
	for i := 0; i < 256; i++ {
		op := Op(i)
		desc, ok := Lookup(op)
		if !ok || desc.IsJump || (!desc.InD9 && !desc.InD10) {
			continue
		}
		dialect := D10
		if !desc.InD10 {
			dialect = D9
		}

		bytes := make([]byte, 1+desc.OperandSize+1)
		bytes[0] = byte(op)
		bytes[len(bytes)-1] = byte(OpRETURN)

		ins, err := Decode(span.New(bytes), dialect)
		if err != nil {
			t.Errorf("opcode %s (0x%02x): unexpected error: %v", desc.Mnemonic, i, err)
			continue
		}
		if len(ins) != 2 {
			t.Errorf("opcode %s (0x%02x): got %d instructions, want 2", desc.Mnemonic, i, len(ins))
			continue
		}
		if ins[0].Opcode != op {
			t.Errorf("opcode %s (0x%02x): first instruction opcode = %v", desc.Mnemonic, i, ins[0].Opcode)
		}
		if ins[1].Location != 1+desc.OperandSize {
			t.Errorf("opcode %s (0x%02x): RETURN at %d, want %d", desc.Mnemonic, i, ins[1].Location, 1+desc.OperandSize)
		}
	}
}

// TestJumpAbsolutization exercises property 2: decoded.Operand == L+1+D for
// a jump instruction at byte offset L with signed offset D.
func TestJumpAbsolutization(t *testing.T) {
	// B at offset 0, 2-byte operand D=5: encoded target should be 0+1+2+5-2 = 6.
	// A trailing RETURN keeps the script terminated.
	bytes := []byte{byte(OpB), 0x00, 0x05, byte(OpRETURN)}
	ins, err := Decode(span.New(bytes), D10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ins) != 2 {
		t.Fatalf("got %d instructions, want 2 (B + RETURN)", len(ins))
	}
	want := int32(0 + 1 + 5)
	if ins[0].Operand != want {
		t.Errorf("B operand = %d, want %d", ins[0].Operand, want)
	}
}

func TestJumpAbsolutizationNegativeOffset(t *testing.T) {
	// B at offset 3, 2-byte operand D=-2 (0xFFFE): target = 6-2-2 = 2.
	bytes := []byte{0x00, 0x00, 0x00, byte(OpB), 0xFF, 0xFE, byte(OpRETURN)}
	ins, err := Decode(span.New(bytes), D10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ins) != 5 {
		t.Fatalf("got %d instructions, want 5 (3 NOPs + B + RETURN)", len(ins))
	}
	if ins[3].Operand != 2 {
		t.Errorf("B operand = %d, want 2", ins[3].Operand)
	}
}

func TestD10VariableLengthCall(t *testing.T) {
	// CALL with top bit set in the first operand byte triggers a second
	// byte: final operand = ((0x81 & 0x7F) << 8) | 0x05 = 261.
	bytes := []byte{byte(OpCALL), 0x81, 0x05, byte(OpRETURN)}
	ins, err := Decode(span.New(bytes), D10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ins) != 2 {
		t.Fatalf("got %d instructions, want 2", len(ins))
	}
	if ins[0].Operand != 261 {
		t.Errorf("CALL operand = %d, want 261", ins[0].Operand)
	}
}

func TestD10VariableLengthCallNotTriggeredUnderD9(t *testing.T) {
	// Under D9 the same bytes decode CALL with just its plain 1-byte
	// operand (sign-extended 0x81 = -127); the second byte is left for the
	// next opcode to decode (here, garbage that must fail).
	bytes := []byte{byte(OpCALL), 0x81, byte(OpRETURN)}
	ins, err := Decode(span.New(bytes), D9)
	if err != nil {
		t.Fatal(err)
	}
	if len(ins) != 2 || ins[0].Operand != -127 {
		t.Fatalf("got %+v, want CALL with operand -127", ins)
	}
}

func TestDialectGating(t *testing.T) {
	bytes := []byte{byte(OpINC)}
	_, err := Decode(span.New(bytes), D9)
	if !errors.Is(err, ErrWrongDialect) {
		t.Fatalf("INC under D9: got %v, want ErrWrongDialect", err)
	}

	bytes = []byte{byte(OpINC), byte(OpRETURN)}
	ins, err := Decode(span.New(bytes), D10)
	if err != nil {
		t.Fatalf("INC under D10: %v", err)
	}
	if len(ins) != 2 {
		t.Fatalf("got %d instructions, want 2", len(ins))
	}
}

func TestInvalidOpcode(t *testing.T) {
	bytes := []byte{0x4A} // first byte above the synthetic codepoints, no table entry
	_, err := Decode(span.New(bytes), D10)
	if !errors.Is(err, ErrInvalidOpcode) {
		t.Fatalf("got %v, want ErrInvalidOpcode", err)
	}
}

func TestSyntheticOpcodeNeverDecodesFromBytes(t *testing.T) {
	bytes := []byte{byte(OpLAND)}
	_, err := Decode(span.New(bytes), D10)
	if !errors.Is(err, ErrWrongDialect) {
		t.Fatalf("got %v, want ErrWrongDialect (synthetic opcodes are invalid in both dialects)", err)
	}
}

func TestTruncatedOperand(t *testing.T) {
	bytes := []byte{byte(OpNUMBER16), 0x01} // wants 2 operand bytes, has 1
	_, err := Decode(span.New(bytes), D10)
	if !errors.Is(err, ErrTruncatedOperand) {
		t.Fatalf("got %v, want ErrTruncatedOperand", err)
	}
}

func TestTerminatesPastLastJumpTarget(t *testing.T) {
	// S4-style: offset 0 NUMBER8 0, BN (target 8); offsets 5,6 NUMBER8 9;
	// offset 7 RETURN; offset 8 RETURN. The RETURN at 7 leaves the cursor
	// at 8, not past the jump target, so decoding continues; the RETURN at
	// 8 ends it. The trailing garbage at offset 9 must not be decoded.
	bytes := []byte{
		byte(OpNUMBER8), 0x00, // 0,1
		byte(OpBN), 0x00, 0x05, // 2,3,4 -> target = 5+5-2 = 8
		byte(OpNUMBER8), 0x09, // 5,6
		byte(OpRETURN), // 7
		byte(OpRETURN), // 8: the jump target, ends decoding
		0xFF,           // 9: trailing garbage, never reached
	}
	// BN at location 2, operandSize=2, operand value 5. next-instruction
	// offset i (after reading operand) = 5.
	// target = i + operand - operandSize = 5 + 5 - 2 = 8.
	ins, err := Decode(span.New(bytes), D10)
	if err != nil {
		t.Fatal(err)
	}
	last := ins[len(ins)-1]
	if last.Location != 8 {
		t.Fatalf("last decoded instruction at %d, want 8 (stopping before trailing garbage)", last.Location)
	}
}

func TestUnterminatedScript(t *testing.T) {
	bytes := []byte{byte(OpNUMBER8), 0x05} // runs out without a RETURN
	_, err := Decode(span.New(bytes), D10)
	if !errors.Is(err, ErrUnterminatedScript) {
		t.Fatalf("got %v, want ErrUnterminatedScript", err)
	}
}
