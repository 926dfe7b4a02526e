package view

import (
	"io"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/utils"
	"golang.org/x/term"
)

// KeyWatcher watches a raw mode terminal for the abort key ('q') without
// waiting for a newline.
type KeyWatcher struct {
	abort   atomic.Bool
	logger  golog.Logger
	restore func() error
}

// StartKeyWatcher puts the controlling terminal into raw mode and starts
// consuming keystrokes. Callers must Close it to restore the terminal.
func StartKeyWatcher(logger golog.Logger) (*KeyWatcher, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	kw := &KeyWatcher{
		logger:  logger,
		restore: func() error { return term.Restore(fd, oldState) },
	}
	utils.PanicCapturingGo(func() {
		kw.watch(os.Stdin)
	})
	return kw, nil
}

// watch consumes keystrokes until the abort key arrives or the reader ends.
// Raw mode delivers ctrl-c as a plain byte, so it aborts too.
func (kw *KeyWatcher) watch(r io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 && (buf[0] == 'q' || buf[0] == 3) {
			kw.logger.Debug("abort key pressed")
			kw.abort.Store(true)
			return
		}
		if err != nil {
			return
		}
	}
}

// AbortRequested reports whether the abort key has been pressed.
func (kw *KeyWatcher) AbortRequested() bool {
	return kw.abort.Load()
}

// Close restores the terminal state.
func (kw *KeyWatcher) Close() error {
	if kw.restore == nil {
		return nil
	}
	return kw.restore()
}
