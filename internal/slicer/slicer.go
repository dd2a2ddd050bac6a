// Package slicer partitions a decoded instruction sequence into the
// contiguous basic-block runs the stack simulator operates on one at a
// time, and lowers each run's short-circuit branch-and-keep patterns into
// synthetic logical-operator instructions.
//
// Grounded on _examples/original_source/main.cpp's slice_script and
// convert_bks_to_fake_logic.
package slicer

import (
	"fmt"
	"sort"

	"github.com/Ninjaclasher/soren/internal/bytecode"
	"github.com/Ninjaclasher/soren/internal/offsetmap"
)

// Slices maps a slice's starting byte offset to its instructions, in
// ascending offset order (see offsetmap.Map).
type Slices = offsetmap.Map[[]bytecode.Instruction]

// Slice partitions script into contiguous runs at control-flow
// boundaries: just after every jump and every return, and at every jump
// target. When ignoreBranchKeep is true (the normal case — see
// SPEC_FULL.md §4.3) BKN/BKY do not themselves contribute slice points,
// since their targets are consumed by the short-circuit lowering pass
// before anything downstream needs to see them as block boundaries.
func Slice(script []bytecode.Instruction, ignoreBranchKeep bool) Slices {
	var result Slices
	if len(script) == 0 {
		return result
	}

	points := map[int]struct{}{}
	for _, ins := range script {
		if ignoreBranchKeep && ins.IsBranchKeep() {
			continue
		}
		if ins.IsJump() {
			desc, _ := bytecode.Lookup(ins.Opcode)
			points[ins.Location+1+desc.OperandSize] = struct{}{}
			points[int(ins.Operand)] = struct{}{}
		}
		if ins.IsReturn() {
			points[ins.Location+1] = struct{}{}
		}
	}

	sortedPoints := make([]int, 0, len(points))
	for p := range points {
		sortedPoints = append(sortedPoints, p)
	}
	sort.Ints(sortedPoints)

	start := 0
	pi := 0
	for start < len(script) {
		var end int
		if pi < len(sortedPoints) {
			target := sortedPoints[pi]
			pi++
			end = start
			for end < len(script) && script[end].Location < target {
				end++
			}
		} else {
			end = len(script)
		}
		if end == start {
			// This slice point fell at or before the current start;
			// it contributes no boundary here. Keep consuming points
			// until one actually advances us.
			continue
		}
		result.Set(script[start].Location, script[start:end])
		start = end
	}

	return result
}

// TargetOutsideSliceError reports a BKN/BKY whose target address is not
// found within the same slice — a structural anomaly SPEC_FULL.md §4.4
// documents as undefined behavior in the source format rather than
// something to silently repair. LowerShortCircuit returns it rather than
// panicking so callers can choose to warn and continue.
type TargetOutsideSliceError struct {
	Location int
	Target   int32
}

func (e *TargetOutsideSliceError) Error() string {
	return fmt.Sprintf("branch-and-keep at offset %d targets %d, which is outside its slice", e.Location, e.Target)
}

// LowerShortCircuit rewrites every BKN/BKY in slice into a synthetic
// LAND/LORR, rotating it forward through the instructions between itself
// and its jump target (which compute the right-hand operand of the
// short-circuit expression) until it immediately precedes the target
// instruction. The slice is mutated in place and also returned. Running
// this twice on an already-lowered slice is a no-op: there are no BK
// opcodes left to find.
func LowerShortCircuit(slice []bytecode.Instruction) ([]bytecode.Instruction, error) {
	for i := 0; i < len(slice); i++ {
		op := slice[i].Opcode
		if !bytecode.IsBranchKeep(op) {
			continue
		}

		target := slice[i].Operand
		j := i + 1
		for j < len(slice) && int32(slice[j].Location) != target {
			slice[j-1], slice[j] = slice[j], slice[j-1]
			j++
		}
		if j >= len(slice) {
			return slice, &TargetOutsideSliceError{Location: slice[i].Location, Target: target}
		}

		newOp := bytecode.OpLAND
		if op == bytecode.OpBKY {
			newOp = bytecode.OpLORR
		}
		slice[j-1].Opcode = newOp
		slice[j-1].Operand = 0
	}

	return slice, nil
}

// CloneForLowering copies a slice's instructions so LowerShortCircuit's
// in-place rotation does not mutate the original decoded sequence shared
// by other slices' views.
func CloneForLowering(slice []bytecode.Instruction) []bytecode.Instruction {
	result := make([]bytecode.Instruction, len(slice))
	copy(result, slice)
	return result
}
