// Package console is a line oriented front end of the Supervisor. It reads
// commands from an input and shows the state of the run as a single label,
// the way a button and a label of a window would.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ncradle/GuiTimeoutSample/internal/service"
)

const (
	CmdStart  = "start"
	CmdCancel = "cancel"
	CmdQuit   = "quit"
)

// Commander is the part of the Supervisor the console drives.
type Commander interface {
	Start(ctx context.Context) error
	Cancel(ctx context.Context)
}

// Console owns its output. Events are queued by Notify and written only by
// the goroutine executing Run.
type Console struct {
	in     io.Reader
	out    io.Writer
	buffer int
	wake   chan struct{}

	mx      sync.Mutex
	pending []service.Event
}

// New creates a console. buffer limits the queued run-rejected-busy events,
// the events of a run itself are never dropped.
func New(in io.Reader, out io.Writer, buffer int) *Console {
	return &Console{
		in:     in,
		out:    out,
		buffer: buffer,
		wake:   make(chan struct{}, 1),
	}
}

// Notify implements service.Notifier. It never blocks. A rejection which
// does not fit into the buffer is dropped, a run produces a bounded number of
// events, so those are always queued.
func (c *Console) Notify(e service.Event) {
	c.mx.Lock()
	if e.Kind == service.EventRejectedBusy && len(c.pending) >= c.buffer {
		c.mx.Unlock()
		slog.Warn("console is busy: dropping event", "event", e.Kind.String())
		return
	}
	c.pending = append(c.pending, e)
	c.mx.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Console) take() []service.Event {
	c.mx.Lock()
	defer c.mx.Unlock()
	events := c.pending
	c.pending = nil
	return events
}

// Run executes commands until quit, end of input or ctx cancellation. Queued
// events are rendered before it returns.
func (c *Console) Run(ctx context.Context, cmd Commander) error {
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	if err := c.label("Ok"); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return c.drain()
		case <-c.wake:
			if err := c.drain(); err != nil {
				return err
			}
		case line, ok := <-lines:
			if !ok {
				if err := c.drain(); err != nil {
					return err
				}
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading commands: %w", err)
					}
				default:
				}
				return nil
			}
			quit, err := c.execute(ctx, cmd, line)
			if err != nil {
				return err
			}
			if quit {
				return c.drain()
			}
		}
	}
}

func (c *Console) execute(ctx context.Context, cmd Commander, line string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return false, nil
	case CmdStart:
		// a busy start is reported through Notify
		_ = cmd.Start(ctx)
	case CmdCancel:
		cmd.Cancel(ctx)
	case CmdQuit, "exit":
		return true, nil
	default:
		_, err := fmt.Fprintf(c.out, "unknown command %q: use start, cancel or quit\n", line)
		return false, err
	}
	return false, nil
}

func (c *Console) drain() error {
	for _, e := range c.take() {
		if err := c.render(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) render(e service.Event) error {
	text := Label(e)
	if text == "" {
		return nil
	}
	return c.label(text)
}

func (c *Console) label(text string) error {
	_, err := fmt.Fprintf(c.out, "[%s]\n", text)
	return err
}

// Label returns the text shown for e.
func Label(e service.Event) string {
	switch e.Kind {
	case service.EventStarted:
		return "Now Loading"
	case service.EventTimedOut:
		return "Process timeOut"
	case service.EventCanceled:
		return "Process is canceled"
	case service.EventSucceeded:
		return "Success"
	case service.EventRejectedBusy:
		return "Process is not finished!"
	case service.EventFailed:
		if e.Err != nil {
			return "Process failed: " + e.Err.Error()
		}
		return "Process failed"
	case service.EventFinished:
		return "Ok"
	default:
		return ""
	}
}
