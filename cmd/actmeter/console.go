package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/c360/actmeter/client"
	"github.com/c360/actmeter/combat"
)

// meter is the part of the client the console drives.
type meter interface {
	Status() client.Status
	LastError() error
	EndEncounter()
	Clear()
	Reset() error
	GetEvent(index int) *combat.Event
	ArchivedCount() int
}

// clientMeter adapts *client.Client to meter.
type clientMeter struct {
	*client.Client
}

func (m clientMeter) ArchivedCount() int { return m.History().Len() }

// console reads one command per line and applies it to the meter.
type console struct {
	meter  meter
	out    io.Writer
	logger *slog.Logger
}

// Run reads commands from r until ctx ends or r is exhausted. The read
// itself cannot be interrupted; a pending line is dropped after ctx ends.
func (c *console) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.logger.Warn("Command input failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				c.logger.Debug("Command input closed")
				return nil
			}
			c.handle(strings.TrimSpace(line))
		}
	}
}

func (c *console) handle(line string) {
	switch strings.ToLower(line) {
	case "":
	case client.CommandEnd:
		c.meter.EndEncounter()
		c.println("ending encounter")
	case client.CommandClear:
		c.meter.Clear()
		c.println("history cleared")
	case "reset":
		if err := c.meter.Reset(); err != nil {
			c.println("reset failed: " + err.Error())
			return
		}
		c.println("connection reset")
	case "status":
		c.println(c.status())
	default:
		c.logger.Warn("Unknown command", "command", line)
		c.println("unknown command " + line + " (end, clear, reset, status)")
	}
}

func (c *console) status() string {
	var b strings.Builder
	b.WriteString(c.meter.Status().String())
	if err := c.meter.LastError(); err != nil && c.meter.Status() == client.ConnectionFailed {
		b.WriteString(" (" + err.Error() + ")")
	}
	b.WriteString(", " + humanize.Comma(int64(c.meter.ArchivedCount())) + " archived")
	if ev := c.meter.GetEvent(-1); ev != nil {
		b.WriteString(", last update " + humanize.Time(ev.Timestamp))
	}
	return b.String()
}

func (c *console) println(s string) {
	_, _ = fmt.Fprintln(c.out, s)
}
