package cmb

import (
	"errors"
	"testing"

	"github.com/Ninjaclasher/soren/internal/bytecode"
)

func putLE(buf []byte, offset, size int, value uint64) {
	for i := 0; i < size; i++ {
		buf[offset+i] = byte(value >> (8 * i))
	}
}

// buildContainer assembles a minimal, hand-laid-out container holding a
// single scene ("scene0", no args, one local, a "return 5" body) plus a
// standalone string-pool entry ("hello") for GetCString coverage.
//
// Layout:
//
//	0x00-0x21  padding
//	0x22       globalCount = 2
//	0x24       offStrings  = 150
//	0x28       offEvents   = 44
//	44         event table: [52, 0] (one scene, then terminator)
//	52         scene header (20 bytes)
//	100        scene name "scene0\x00"
//	110        scene script: NUMBER8 5; RETURN
//	150        string pool: "hello\x00"
func buildContainer() []byte {
	const size = 156
	buf := make([]byte, size)

	putLE(buf, 0x22, 2, 2)
	putLE(buf, 0x24, 4, 150)
	putLE(buf, 0x28, 4, 44)

	putLE(buf, 44, 4, 52)
	putLE(buf, 48, 4, 0)

	putLE(buf, 52, 4, 100) // nameOff
	putLE(buf, 56, 4, 110) // scriptOff
	buf[64] = 0            // kind
	buf[65] = 0            // argCount
	buf[66] = 0            // paramCount
	putLE(buf, 68, 2, 0)   // sceneIdx
	putLE(buf, 70, 2, 1)   // varCount

	copy(buf[100:], []byte("scene0\x00"))
	copy(buf[110:], []byte{byte(bytecode.OpNUMBER8), 0x05, byte(bytecode.OpRETURN)})
	copy(buf[150:], []byte("hello\x00"))

	return buf
}

func TestParseSingleScene(t *testing.T) {
	c, err := Parse(buildContainer(), bytecode.D10)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.GlobalNames) != 2 || c.GlobalNames[0] != "glob_0" || c.GlobalNames[1] != "glob_1" {
		t.Fatalf("GlobalNames = %v", c.GlobalNames)
	}
	if len(c.Scenes) != 1 {
		t.Fatalf("got %d scenes, want 1", len(c.Scenes))
	}
	scene := c.Scenes[0]
	if scene.Name != "scene0" {
		t.Fatalf("Name = %q, want scene0", scene.Name)
	}
	if scene.ArgCount != 0 || len(scene.VarNames) != 1 || scene.VarNames[0] != "var_0" {
		t.Fatalf("unexpected var layout: %+v", scene)
	}
	if len(scene.Script) != 2 {
		t.Fatalf("got %d instructions, want 2: %+v", len(scene.Script), scene.Script)
	}
	if scene.Script[0].Opcode != bytecode.OpNUMBER8 || scene.Script[0].Operand != 5 {
		t.Fatalf("script[0] = %+v, want NUMBER8 5", scene.Script[0])
	}
}

func TestGetCString(t *testing.T) {
	c, err := Parse(buildContainer(), bytecode.D10)
	if err != nil {
		t.Fatal(err)
	}
	s, err := c.GetCString(0)
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Fatalf("GetCString(0) = %q, want hello", s)
	}
}

func TestTruncatedHeaderRejected(t *testing.T) {
	_, err := Parse(make([]byte, 10), bytecode.D10)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestGlobalCountSuspicionLimit(t *testing.T) {
	buf := buildContainer()
	putLE(buf, 0x22, 2, 2000)
	_, err := Parse(buf, bytecode.D10)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated for an implausible global count", err)
	}
}

func TestParamCountSuspicionLimit(t *testing.T) {
	buf := buildContainer()
	buf[66] = 21 // paramCount, argCountSuspicionLimit is 20
	_, err := Parse(buf, bytecode.D10)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated for an implausible parameter count", err)
	}
}

func TestArgCountExceedsVarCount(t *testing.T) {
	buf := buildContainer()
	buf[65] = 2 // argCount
	putLE(buf, 70, 2, 1) // varCount stays 1, now less than argCount
	_, err := Parse(buf, bytecode.D10)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated when argCount exceeds varCount", err)
	}
}

func TestSceneIndexMismatchRejected(t *testing.T) {
	buf := buildContainer()
	putLE(buf, 68, 2, 1) // sceneIdx claims 1, but it is the table's 0th entry
	_, err := Parse(buf, bytecode.D10)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated on scene index mismatch", err)
	}
}

func TestEventOffsetArrayUnterminated(t *testing.T) {
	buf := make([]byte, 50)
	putLE(buf, 0x22, 2, 0)
	putLE(buf, 0x24, 4, 48)
	putLE(buf, 0x28, 4, 48) // offEvents near the end: entryOff+4 runs past len(data)
	_, err := Parse(buf, bytecode.D10)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated for an unterminated event table", err)
	}
}

func TestUnknownSceneNamedByIndex(t *testing.T) {
	buf := buildContainer()
	putLE(buf, 52, 4, 0) // nameOff = 0: no name string, falls back to unk_%d
	c, err := Parse(buf, bytecode.D10)
	if err != nil {
		t.Fatal(err)
	}
	if c.Scenes[0].Name != "unk_0" {
		t.Fatalf("Name = %q, want unk_0", c.Scenes[0].Name)
	}
}
