// Package cmb implements the container reader: the byte-layout parser
// for the enclosing file format that holds one or more POR scripts (a
// "CMB" in the original tooling's naming). It is the component the rest
// of the pipeline treats as an external collaborator (SPEC_FULL.md §6),
// reimplemented here in full per the original_source reference rather
// than left as a stub, since something has to produce the Scene/Script
// tables the stack simulator consumes.
//
// Grounded on _examples/original_source/decode/read-cmb.cpp.
package cmb

import (
	"errors"
	"fmt"

	"github.com/Ninjaclasher/soren/internal/bytecode"
	"github.com/Ninjaclasher/soren/internal/span"
)

const (
	offGlobalCount = 0x22
	offStringPool  = 0x24
	offEventTable  = 0x28
	minHeaderSize  = 0x2C

	sceneHeaderSize = 0x14

	globalCountSuspicionLimit = 1000
	varCountSuspicionLimit    = 1000
	argCountSuspicionLimit    = 20
)

// ErrTruncated covers every "a required field or table runs past the end
// of the file" failure: a short header, an unterminated event table, a
// scene header whose trailing parameter array doesn't fit, and so on.
// It is the container-reader's contribution to SPEC_FULL.md §7's
// TruncatedScript error class.
var ErrTruncated = errors.New("container truncated or malformed")

// Scene is one event/procedure-like unit of bytecode: a name, its
// arguments and locals, and its raw decoded instruction stream.
type Scene struct {
	Index      int
	Name       string
	Kind       int
	ArgCount   int
	ParamCount int
	Parameters []int // trigger-parameter codes, kept opaque (SPEC_FULL.md §3)
	VarNames   []string
	IsGlobal   bool
	Script     []bytecode.Instruction
}

// Container holds everything decoded from one input file: every scene,
// the string pool they index into, and the synthesized global names.
type Container struct {
	Scenes      []Scene
	GlobalNames []string

	stringPool span.Bytes
}

// GetCString resolves a string-pool-relative offset (as carried by a
// STRING opcode or the high bits of a CALLEXT operand) to its text.
func (c *Container) GetCString(offset int) (string, error) {
	s, err := span.CString(c.stringPool, offset)
	if err != nil {
		return "", fmt.Errorf("bad string pool offset %d: %w", offset, err)
	}
	return s, nil
}

// Parse reads an entire container file and decodes every scene's
// bytecode body under the given dialect.
func Parse(data []byte, dialect bytecode.Dialect) (*Container, error) {
	if len(data) < minHeaderSize {
		return nil, fmt.Errorf("%w: file is only %d bytes", ErrTruncated, len(data))
	}
	file := span.New(data)

	globalCount, err := readLE(file, offGlobalCount, 2)
	if err != nil {
		return nil, err
	}
	offStrings, err := readLE(file, offStringPool, 4)
	if err != nil {
		return nil, err
	}
	offEvents, err := readLE(file, offEventTable, 4)
	if err != nil {
		return nil, err
	}

	if int(offStrings) >= len(data) {
		return nil, fmt.Errorf("%w: string pool offset %d past end of file", ErrTruncated, offStrings)
	}
	if int(offEvents) >= len(data) {
		return nil, fmt.Errorf("%w: event table offset %d past end of file", ErrTruncated, offEvents)
	}
	if globalCount > globalCountSuspicionLimit {
		return nil, fmt.Errorf("%w: global count %d past suspicion limit", ErrTruncated, globalCount)
	}

	poolEnd := len(data)
	if int(offStrings) < int(offEvents) {
		poolEnd = int(offEvents)
	}
	stringPool := file.From(int(offStrings))
	stringPool = stringPool.Sub(0, poolEnd-int(offStrings))

	container := &Container{
		GlobalNames: make([]string, globalCount),
		stringPool:  stringPool,
	}
	for i := range container.GlobalNames {
		container.GlobalNames[i] = fmt.Sprintf("glob_%d", i)
	}

	for i := 0; ; i++ {
		entryOff := int(offEvents) + i*4
		if entryOff+4 > len(data) {
			return nil, fmt.Errorf("%w: event offset array unterminated", ErrTruncated)
		}
		eventOff, err := readLE(file, entryOff, 4)
		if err != nil {
			return nil, err
		}
		if eventOff == 0 {
			break
		}
		scene, err := parseScene(file, data, int(eventOff), i, dialect)
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}
		container.Scenes = append(container.Scenes, *scene)
	}

	return container, nil
}

func parseScene(file span.Bytes, data []byte, eventOff, idx int, dialect bytecode.Dialect) (*Scene, error) {
	if eventOff+sceneHeaderSize > len(data) {
		return nil, fmt.Errorf("%w: scene header past end of file", ErrTruncated)
	}

	nameOff, err := readLE(file, eventOff+0x00, 4)
	if err != nil {
		return nil, err
	}
	scriptOff, err := readLE(file, eventOff+0x04, 4)
	if err != nil {
		return nil, err
	}
	kind, err := readLE(file, eventOff+0x0C, 1)
	if err != nil {
		return nil, err
	}
	argCount, err := readLE(file, eventOff+0x0D, 1)
	if err != nil {
		return nil, err
	}
	paramCount, err := readLE(file, eventOff+0x0E, 1)
	if err != nil {
		return nil, err
	}
	sceneIdx, err := readLE(file, eventOff+0x10, 2)
	if err != nil {
		return nil, err
	}
	varCount, err := readLE(file, eventOff+0x12, 2)
	if err != nil {
		return nil, err
	}

	if paramCount > argCountSuspicionLimit {
		return nil, fmt.Errorf("%w: parameter count %d past suspicion limit", ErrTruncated, paramCount)
	}
	if varCount > varCountSuspicionLimit {
		return nil, fmt.Errorf("%w: variable count %d past suspicion limit", ErrTruncated, varCount)
	}
	if argCount > varCount {
		return nil, fmt.Errorf("%w: argument count %d exceeds variable count %d", ErrTruncated, argCount, varCount)
	}
	if int(sceneIdx) != idx {
		return nil, fmt.Errorf("%w: scene index %d does not match its table position %d", ErrTruncated, sceneIdx, idx)
	}
	if eventOff+sceneHeaderSize+2*int(paramCount) > len(data) {
		return nil, fmt.Errorf("%w: scene parameter array past end of file", ErrTruncated)
	}

	scene := &Scene{
		Index:      idx,
		Kind:       int(kind),
		ArgCount:   int(argCount),
		ParamCount: int(paramCount),
		IsGlobal:   nameOff != 0,
	}

	if nameOff == 0 {
		scene.Name = fmt.Sprintf("unk_%d", idx)
	} else {
		name, err := readCString(data, int(nameOff))
		if err != nil {
			return nil, err
		}
		scene.Name = name
	}

	scene.Parameters = make([]int, paramCount)
	for i := range scene.Parameters {
		v, err := readLE(file, eventOff+sceneHeaderSize+2*i, 2)
		if err != nil {
			return nil, err
		}
		scene.Parameters[i] = int(v)
	}

	scene.VarNames = make([]string, varCount)
	for i := 0; i < int(argCount); i++ {
		scene.VarNames[i] = fmt.Sprintf("arg_%d", i)
	}
	for i := int(argCount); i < int(varCount); i++ {
		scene.VarNames[i] = fmt.Sprintf("var_%d", i-int(argCount))
	}

	if int(scriptOff) > len(data) {
		return nil, fmt.Errorf("%w: script offset %d past end of file", ErrTruncated, scriptOff)
	}
	instructions, err := bytecode.Decode(file.From(int(scriptOff)), dialect)
	if err != nil {
		return nil, err
	}
	scene.Script = instructions

	return scene, nil
}

func readLE(file span.Bytes, offset, size int) (uint64, error) {
	sub, err := file.TrySub(offset, size)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return span.DecodeLE(sub)
}

func readCString(data []byte, offset int) (string, error) {
	i := offset
	for {
		if i >= len(data) {
			return "", fmt.Errorf("%w: scene name starting at %d runs past end of file", ErrTruncated, offset)
		}
		if data[i] == 0 {
			return string(data[offset:i]), nil
		}
		i++
	}
}
