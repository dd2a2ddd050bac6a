// Command pordec disassembles a POR bytecode container into labeled
// pseudocode, one EVENT block per embedded scene.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tebeka/atexit"

	"github.com/Ninjaclasher/soren/internal/bytecode"
	"github.com/Ninjaclasher/soren/internal/cmb"
	"github.com/Ninjaclasher/soren/internal/emit"
)

var failedScenes int

func main() {
	dialectFlag := flag.String("dialect", "d10", "opcode dialect: d9 or d10")
	sceneFlag := flag.String("scene", "", "restrict output to one scene, by name or index")
	debugFlag := flag.Bool("debug", false, "dump the decoded container header to stderr")
	listFlag := flag.Bool("list", false, "print a table of scenes instead of disassembling")
	opcodesFlag := flag.Bool("opcodes", false, "print the static opcode descriptor table and exit")
	flag.Parse()

	atexit.Register(func() {
		if failedScenes > 0 {
			fmt.Fprintf(os.Stderr, "pordec: %d scene(s) failed to disassemble\n", failedScenes)
		}
	})

	if *opcodesFlag {
		printOpcodeTable()
		atexit.Exit(0)
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: pordec [flags] <input file>")
		atexit.Exit(1)
	}

	dialect, err := parseDialect(*dialectFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pordec:", err)
		atexit.Exit(2)
	}

	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pordec:", err)
		atexit.Exit(2)
	}

	container, err := cmb.Parse(data, dialect)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pordec:", err)
		atexit.Exit(2)
	}

	if *debugFlag {
		spew.Fdump(os.Stderr, container)
	}

	if *listFlag {
		printSceneTable(container)
		atexit.Exit(0)
	}

	scenes := container.Scenes
	if *sceneFlag != "" {
		scene, ok := findScene(container, *sceneFlag)
		if !ok {
			fmt.Fprintf(os.Stderr, "pordec: no scene named or indexed %q\n", *sceneFlag)
			atexit.Exit(2)
		}
		scenes = []cmb.Scene{*scene}
	}

	if err := emit.Globals(os.Stdout, container.GlobalNames); err != nil {
		fmt.Fprintln(os.Stderr, "pordec:", err)
		atexit.Exit(2)
	}

	for i, scene := range scenes {
		if err := emit.Scene(os.Stdout, container, &scene); err != nil {
			fmt.Fprintln(os.Stderr, "pordec:", err)
			failedScenes++
			continue
		}
		if i < len(scenes)-1 {
			fmt.Fprintln(os.Stdout)
		}
	}

	atexit.Exit(0)
}

func parseDialect(s string) (bytecode.Dialect, error) {
	switch s {
	case "d9":
		return bytecode.D9, nil
	case "d10":
		return bytecode.D10, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q (want d9 or d10)", s)
	}
}

// findScene resolves -scene=<name|index> against the container's scene
// list, trying a numeric index first.
func findScene(container *cmb.Container, ref string) (*cmb.Scene, bool) {
	if idx, err := strconv.Atoi(ref); err == nil {
		for i := range container.Scenes {
			if container.Scenes[i].Index == idx {
				return &container.Scenes[i], true
			}
		}
		return nil, false
	}
	for i := range container.Scenes {
		if container.Scenes[i].Name == ref {
			return &container.Scenes[i], true
		}
	}
	return nil, false
}

func printSceneTable(container *cmb.Container) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Scenes")
	t.AppendHeader(table.Row{"Index", "Name", "Kind", "Args", "Vars", "Global"})
	for _, scene := range container.Scenes {
		t.AppendRow(table.Row{scene.Index, scene.Name, scene.Kind, scene.ArgCount, len(scene.VarNames), scene.IsGlobal})
	}
	t.Render()
}

func printOpcodeTable() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Opcodes")
	t.AppendHeader(table.Row{"Byte", "Mnemonic", "OperandSize", "Jump", "D9", "D10"})
	for _, op := range bytecode.AllOpcodes() {
		desc, _ := bytecode.Lookup(op)
		t.AppendRow(table.Row{
			fmt.Sprintf("0x%02x", byte(op)),
			desc.Mnemonic,
			desc.OperandSize,
			desc.IsJump,
			desc.InD9,
			desc.InD10,
		})
	}
	t.Render()
}
