// Package report delivers audit lines to the log collector.
package report

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"cyberaudit/internal/audit"
)

// DryRunBanner is printed before the message in dry-run mode.
const DryRunBanner = "DRY RUN - will not send to papertail"

// Sender delivers one encoded audit line.
type Sender interface {
	Send(ctx context.Context, msg []byte) error
}

// DialFunc opens a connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Collector writes the line to a TCP listener and closes the connection.
// Nothing is read back.
type Collector struct {
	Dial DialFunc
	Log  logrus.FieldLogger
	Addr string
}

// NewCollector returns a collector for addr using a plain net.Dialer (no timeout).
func NewCollector(addr string, log logrus.FieldLogger) *Collector {
	var d net.Dialer
	return &Collector{Addr: addr, Dial: d.DialContext, Log: log}
}

// Send implements Sender.
func (c *Collector) Send(ctx context.Context, msg []byte) (err error) {
	start := time.Now()

	conn, err := c.Dial(ctx, "tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to collector %s: %w", audit.ErrNetwork, c.Addr, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: failed to close collector connection: %w", audit.ErrNetwork, cerr)
		}
	}()

	// net.Conn.Write returns an error on any short write.
	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("%w: failed to send report to %s: %w", audit.ErrNetwork, c.Addr, err)
	}

	if c.Log != nil {
		c.Log.Debugf("Sent %d bytes to %s in %v", len(msg), c.Addr, time.Since(start))
	}
	return nil
}

// DryRun prints the line instead of sending it.
type DryRun struct {
	Out io.Writer
}

// Send implements Sender. The message is written verbatim after the banner line.
func (d DryRun) Send(_ context.Context, msg []byte) error {
	if _, err := fmt.Fprintln(d.Out, DryRunBanner); err != nil {
		return fmt.Errorf("failed to write dry run output: %w", err)
	}
	if _, err := d.Out.Write(msg); err != nil {
		return fmt.Errorf("failed to write dry run output: %w", err)
	}
	return nil
}
