// Package powermon implements the clients for the RF and DC power-meter servers.
//
// Both servers speak a line protocol: the client writes one command terminated by '\n' and the
// server answers with exactly one line. A reply starting with "ERR" reports a failed command.
// Every read is a fresh round trip, nothing is cached except the identity string.
package powermon

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ja7ad/pasweep/pkg/util"
)

const (
	cmdIdentify     = "*IDN?"
	cmdPower        = "MEAS:POW?"
	cmdCurrent      = "MEAS:CURR?"
	cmdShuntVoltage = "MEAS:VSH?"
	cmdBusVoltage   = "MEAS:VBUS?"
)

// DefaultTimeout bounds a single query when the connection supports deadlines.
const DefaultTimeout = 2 * time.Second

type deadliner interface {
	SetDeadline(t time.Time) error
}

type client struct {
	name    string
	conn    io.ReadWriteCloser
	rd      *bufio.Reader
	timeout time.Duration
	id      string
	lost    error
}

func dial(ctx context.Context, name string, t Transport) (*client, error) {
	conn, err := t.Open(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: connect over %s", name, t)
	}
	c := &client{
		name:    name,
		conn:    conn,
		rd:      bufio.NewReader(conn),
		timeout: DefaultTimeout,
	}
	id, err := c.query(cmdIdentify)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "%s: identify", name)
	}
	c.id = id
	return c, nil
}

// query sends cmd and returns the trimmed reply line. A failed write or read leaves the
// stream out of step with the commands, so the connection is dropped and every later query
// fails with ErrLinkLost.
func (c *client) query(cmd string) (string, error) {
	if c.conn == nil {
		if c.lost != nil {
			return "", errors.Wrapf(ErrLinkLost, "%s: %s: %v", c.name, cmd, c.lost)
		}
		return "", ErrClosed
	}
	if d, ok := c.conn.(deadliner); ok && c.timeout > 0 {
		_ = d.SetDeadline(time.Now().Add(c.timeout))
	}
	if _, err := io.WriteString(c.conn, cmd+"\n"); err != nil {
		return "", c.drop(errors.Wrapf(err, "%s: write %s", c.name, cmd))
	}
	line, err := c.rd.ReadString('\n')
	if err != nil {
		return "", c.drop(errors.Wrapf(err, "%s: read reply to %s", c.name, cmd))
	}
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "ERR") {
		return "", errors.Wrapf(ErrMeter, "%s: %s: %s", c.name, cmd, line)
	}
	return line, nil
}

func (c *client) queryFloat(cmd string) (float64, error) {
	reply, err := c.query(cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil || !util.Finite(v) {
		return 0, errors.Wrapf(ErrBadReply, "%s: %s: %q", c.name, cmd, reply)
	}
	return v, nil
}

func (c *client) drop(err error) error {
	_ = c.conn.Close()
	c.conn = nil
	c.lost = err
	return err
}

// close releases the connection. Calling it again is a no-op.
func (c *client) close() error {
	c.lost = nil
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return errors.Wrapf(err, "%s: close", c.name)
}
