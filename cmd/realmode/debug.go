package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ezrec/realmode/cpu"
	"github.com/ezrec/realmode/emulator"
)

// stackDepth is the number of stack words shown by the debugger.
const stackDepth = 16

type debugger struct {
	emu   *emulator.Emulator
	limit int

	code  *tview.TextView
	regs  *tview.TextView
	stack *tview.TextView
	state *tview.TextView
	log   *tview.TextView
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application
}

func newDebugger(emu *emulator.Emulator, limit int) *debugger {
	d := &debugger{
		emu:   emu,
		limit: limit,
		code: tview.NewTextView().
			SetWrap(false).
			SetDynamicColors(true),
		regs: tview.NewTextView().
			SetWrap(false),
		stack: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		log: tview.NewTextView().
			SetMaxLines(1000),
		cols: tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.code.SetBorder(true).SetTitle(" code ")
	d.regs.SetBorder(true).SetTitle(" registers ")
	d.stack.SetBorder(true).SetTitle(" stack ")
	d.regs.SetBackgroundColor(tcell.ColorDarkBlue)
	d.stack.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.code, 0, 2, false).
		AddItem(d.regs, 18, 0, false).
		AddItem(d.stack, 14, 0, false)
	d.rows.
		AddItem(d.cols, 0, 2, false).
		AddItem(d.state, 1, 0, false).
		AddItem(d.log, 0, 1, false)
	d.app.SetRoot(d.rows, true)
	d.app.SetInputCapture(d.key)

	return d
}

// Run the debugger until the user quits. The standard logger writes to the
// log pane while the debugger is up.
func (d *debugger) Run() error {
	log.SetOutput(d.log)
	log.SetPrefix("")
	defer func() {
		log.SetOutput(os.Stderr)
		log.SetPrefix("realmode: ")
	}()

	d.emu.Reset()
	log.Print("s/space: step, r: run, R: reset, q: quit")
	d.refresh()

	return d.app.Run()
}

func (d *debugger) key(ev *tcell.EventKey) *tcell.EventKey {
	if ev.Key() != tcell.KeyRune {
		return ev
	}

	switch ev.Rune() {
	case 's', ' ':
		d.step()
	case 'r':
		d.run()
	case 'R':
		d.emu.Reset()
		log.Print("reset")
	case 'q':
		d.app.Stop()
		return nil
	default:
		return ev
	}

	d.refresh()
	return nil
}

func (d *debugger) step() {
	if d.emu.Halted() {
		log.Print("halted, R to reset")
		return
	}
	if d.emu.Steps() >= d.limit {
		log.Print(emulator.ErrStepLimit)
		return
	}

	done, err := d.emu.Tick()
	if err != nil {
		log.Print(err)
		return
	}
	if done {
		log.Printf("halted after %d steps", d.emu.Steps())
	}
}

func (d *debugger) run() {
	remain := d.limit - d.emu.Steps()
	if d.emu.Halted() || remain <= 0 {
		d.step()
		return
	}

	steps, err := d.emu.Run(remain)
	switch {
	case errors.Is(err, emulator.ErrStepLimit):
		log.Printf("%v after %d steps", err, d.emu.Steps())
	case err != nil:
		log.Print(err)
	default:
		log.Printf("halted after %d steps (%d this run)", d.emu.Steps(), steps)
	}
}

func (d *debugger) refresh() {
	regs := d.emu.Registers()

	text, row := codeText(d.emu.Program, regs.Ip)
	d.code.SetText(text)
	d.code.ScrollTo(max(row-3, 0), 0)
	d.regs.SetText(d.emu.Cpu.String())
	d.stack.SetText(stackText(d.emu.Cpu))

	d.state.SetText(stateText(d.emu, d.limit))
	switch {
	case d.emu.Fault() != nil:
		d.state.SetTextColor(tcell.ColorWhite)
		d.state.SetBackgroundColor(tcell.ColorDarkRed)
	case d.emu.Halted():
		d.state.SetTextColor(tcell.ColorYellow)
		d.state.SetBackgroundColor(tcell.ColorDarkBlue)
	default:
		d.state.SetTextColor(tcell.ColorBlack)
		d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	}
}

// codeText renders the program listing, highlighting the instruction at ip.
// row is the line of the highlighted instruction, or -1.
func codeText(prog *cpu.Program, ip uint16) (text string, row int) {
	var sb strings.Builder

	row = -1
	for n := range prog.Opcodes {
		op := &prog.Opcodes[n]

		hex := make([]string, len(op.Bytes))
		for i, value := range op.Bytes {
			hex[i] = fmt.Sprintf("%02X", value)
		}

		line := fmt.Sprintf("%04X  %-12s %s", op.Ip, strings.Join(hex, " "), tview.Escape(op.String()))
		if op.LineNo != 0 {
			line = fmt.Sprintf("%3d %s", op.LineNo, line)
		}

		if int(ip) >= op.Ip && int(ip) < op.Ip+len(op.Bytes) {
			row = n
			line = "[black:yellow]" + line + "[-:-]"
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	text = sb.String()
	return
}

// stackText renders the words between SP and the stack top, top of stack
// first.
func stackText(c *cpu.Cpu) string {
	var sb strings.Builder

	sp := c.Registers().Sp
	for n := 0; n < stackDepth && sp < cpu.STACK_START; n++ {
		fmt.Fprintf(&sb, "%04X: %04X\n", sp, c.Read16(sp))
		sp += 2
	}

	return sb.String()
}

// stateText summarizes the run state on one line.
func stateText(emu *emulator.Emulator, limit int) string {
	state := "ready"
	switch {
	case emu.Fault() != nil:
		state = emu.Fault().Error()
	case emu.Halted():
		state = "halted"
	case emu.Steps() >= limit:
		state = "step limit"
	}

	return fmt.Sprintf(" step %d/%d | line %d | %s", emu.Steps(), limit, emu.LineNo(), state)
}
