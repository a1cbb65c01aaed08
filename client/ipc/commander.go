package ipc

import (
	"context"

	"github.com/c360/actmeter/client"
	"github.com/c360/actmeter/errors"
)

// Commander publishes aggregator commands on <prefix>.command.
type Commander struct {
	bus     Bus
	subject string
}

var _ client.Commander = (*Commander)(nil)

// NewCommander creates a commander for the plugin at prefix.
func NewCommander(bus Bus, prefix string) *Commander {
	cfg := Config{Prefix: prefix}.withDefaults()
	return &Commander{bus: bus, subject: cfg.commandSubject()}
}

// SendCommand implements client.Commander.
func (c *Commander) SendCommand(ctx context.Context, command string) error {
	if err := c.bus.Publish(ctx, c.subject, []byte(command)); err != nil {
		return errors.Wrap(err, "ipc", "SendCommand", "publish "+command)
	}
	return nil
}
