// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Command realmode runs programs on the 16-bit real-mode simulator.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/ezrec/realmode/cpu"
	"github.com/ezrec/realmode/emulator"
	"github.com/ezrec/realmode/translate"
)

func main() {
	var compile string
	var binary string
	var save string
	var limit int
	var verbose bool
	var quiet bool
	var trace bool
	var debug bool
	var watch bool

	log.SetPrefix("realmode: ")
	log.SetFlags(0)

	flag.StringVar(&compile, "c", "", ".asm file to assemble")
	flag.StringVar(&binary, "b", "", "Raw image to load at address 0")
	flag.StringVar(&save, "s", "", "Save the image to a file, do not execute")
	flag.IntVar(&limit, "n", emulator.STEP_LIMIT, "Maximum steps to execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&quiet, "q", false, "Do not trace steps")
	flag.BoolVar(&trace, "trace", false, "Trace steps, even if stdout is not a terminal")
	flag.BoolVar(&debug, "debug", false, "Interactive debugger")
	flag.BoolVar(&watch, "watch", false, "Re-run whenever the -c file changes")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("Unknown arguments: %v", flag.Args())
	}
	if len(compile) != 0 && len(binary) != 0 {
		log.Fatalf("-c and -b are mutually exclusive")
	}
	if watch && len(compile) == 0 {
		log.Fatalf("-watch requires -c")
	}
	if limit <= 0 {
		log.Fatalf("-n must be positive")
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	// Assemble a new instruction stream.
	if len(compile) != 0 {
		prog, err := assemble(emu, compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		emu.Program = prog
	}

	if len(binary) != 0 {
		image, err := os.ReadFile(binary)
		if err != nil {
			log.Fatal(err)
		}
		if len(image) > cpu.MEMORY_SIZE {
			log.Fatalf("%v: larger than %d bytes", binary, cpu.MEMORY_SIZE)
		}
		emu.Program = cpu.NewProgram(image)
	}

	if len(save) != 0 {
		err := os.WriteFile(save, emu.Program.Binary(), 0o644)
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	if !trace {
		trace = term.IsTerminal(int(os.Stdout.Fd()))
	}
	if quiet {
		trace = false
	}

	var err error
	switch {
	case debug:
		err = newDebugger(emu, limit).Run()
	case watch:
		err = watchRun(emu, compile, limit, trace)
	default:
		_, err = run(os.Stdout, emu, limit, trace)
		if errors.Is(err, emulator.ErrStepLimit) {
			log.Print(err)
			err = nil
		}
	}

	if err != nil {
		log.Fatal(err)
	}
}

// assemble parses an assembly source file, with the emulator's defines
// available as equates.
func assemble(emu *emulator.Emulator, path string) (prog *cpu.Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	prog, err = asm.Parse(inf)
	return
}

// run resets the emulator, runs it to halt or limit, and reports the value
// on top of the stack. The result is reported even if the run stopped on an
// error. Numbers are pre-formatted so the locale printer does not group
// their digits.
func run(out io.Writer, emu *emulator.Emulator, limit int, trace bool) (result uint16, err error) {
	translate.Fprintf(out, "--- x86 Real Mode Simulator ---\n")

	emu.Reset()
	emu.Trace = nil
	if trace {
		emu.Trace = out
	}

	steps, err := emu.Run(limit)
	if emu.Halted() {
		translate.Fprintf(out, "\nSimulation Halted.\n")
	} else {
		translate.Fprintf(out, "\nSimulation stopped after %v steps.\n", fmt.Sprint(steps))
	}

	result = emu.Result()
	translate.Fprintf(out, "Final Result on Stack: %v\n", fmt.Sprint(result))

	return
}
