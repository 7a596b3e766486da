package app

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Command is a control panel action
type Command int

const (
	CmdNone Command = iota
	CmdQuit
	CmdToggle
	CmdDelayUp
	CmdDelayDown
	CmdGainUp
	CmdGainDown
	CmdMute
	CmdReset
)

// Panel reads single keystrokes from the terminal and forwards them as
// commands. It holds no session state: every key maps straight to a
// command the orchestrator applies.
type Panel struct {
	in       *os.File
	commands chan Command

	mu       sync.Mutex
	oldState *term.State
}

// NewPanel creates a panel reading from the controlling terminal
func NewPanel() *Panel {
	return &Panel{
		in:       os.Stdin,
		commands: make(chan Command, 10),
	}
}

// Commands returns the channel on which panel commands arrive
func (p *Panel) Commands() <-chan Command {
	return p.commands
}

// Run switches the terminal to raw mode and reads keys until the context
// ends or the user quits. The terminal is always restored on return.
func (p *Panel) Run(ctx context.Context) error {
	fd := int(p.in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.oldState = oldState
	p.mu.Unlock()
	defer p.Restore()

	buf := make([]byte, 6)
	for {
		n, err := p.in.Read(buf)
		if err != nil {
			if err == io.EOF {
				p.send(ctx, CmdQuit)
				return nil
			}
			return err
		}

		cmd := parseKey(buf[:n])
		if cmd == CmdNone {
			continue
		}

		p.send(ctx, cmd)
		if cmd == CmdQuit {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// Restore returns the terminal to cooked mode. Safe to call more than
// once, and needed when shutdown comes from a signal rather than a key,
// since the read loop may still be blocked in raw mode.
func (p *Panel) Restore() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.oldState != nil {
		_ = term.Restore(int(p.in.Fd()), p.oldState)
		p.oldState = nil
	}
}

func (p *Panel) send(ctx context.Context, cmd Command) {
	select {
	case p.commands <- cmd:
	case <-ctx.Done():
	}
}

// parseKey maps a raw key sequence to a command. Arrow keys arrive as
// three-byte escape sequences (ESC [ A etc).
func parseKey(buf []byte) Command {
	if len(buf) == 0 {
		return CmdNone
	}

	if len(buf) >= 3 && buf[0] == 0x1b && buf[1] == '[' {
		switch buf[2] {
		case 'A', 'C': // up, right
			return CmdDelayUp
		case 'B', 'D': // down, left
			return CmdDelayDown
		}
		return CmdNone
	}

	switch buf[0] {
	case 'q', 'Q', 3: // 3 = Ctrl-C in raw mode
		return CmdQuit
	case ' ':
		return CmdToggle
	case '+', '=':
		return CmdDelayUp
	case '-', '_':
		return CmdDelayDown
	case ']':
		return CmdGainUp
	case '[':
		return CmdGainDown
	case 'm', 'M':
		return CmdMute
	case 'r', 'R':
		return CmdReset
	}

	return CmdNone
}
