package main

import (
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"

	"github.com/ezrec/realmode/emulator"
)

// settle is how long to wait for a burst of file events to finish.
const settle = 100 * time.Millisecond

// watchRun assembles and runs source, then does so again every time it
// changes, until interrupted.
func watchRun(emu *emulator.Emulator, source string, limit int, trace bool) (err error) {
	source = filepath.Clean(source)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	defer watcher.Close()

	// Watch the directory, editors often replace the file.
	err = watcher.Watch(filepath.Dir(source))
	if err != nil {
		return
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	rerun := rerunner(os.Stdout, emu, source, limit, trace)
	rerun()
	watchLoop(source, watcher.Event, watcher.Error, interrupt, rerun)

	return
}

// rerunner returns a function that assembles source into the emulator and
// runs it, writing the report to out. Errors are logged.
func rerunner(out io.Writer, emu *emulator.Emulator, source string, limit int, trace bool) func() {
	return func() {
		prog, err := assemble(emu, source)
		if err != nil {
			log.Printf("%v: %v", source, err)
			return
		}
		emu.Program = prog
		_, err = run(out, emu, limit, trace)
		if err != nil && !errors.Is(err, emulator.ErrStepLimit) {
			log.Print(err)
		}
	}
}

// watchLoop calls rerun once a burst of events on source has settled. It
// returns when interrupted.
func watchLoop(source string, events <-chan *fsnotify.FileEvent, errs <-chan error, interrupt <-chan os.Signal, rerun func()) {
	var pending <-chan time.Time
	for {
		select {
		case ev := <-events:
			if filepath.Clean(ev.Name) != source || ev.IsDelete() {
				break
			}
			pending = time.After(settle)
		case <-pending:
			pending = nil
			log.Printf("%v changed", source)
			rerun()
		case werr := <-errs:
			log.Printf("watch: %v", werr)
		case <-interrupt:
			return
		}
	}
}
