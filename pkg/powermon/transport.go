package powermon

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
)

// Transport opens the byte stream to a meter server.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

// Serial is a USB-serial link, 8N1.
type Serial struct {
	Port string
	Baud uint
}

func (s Serial) Open(_ context.Context) (io.ReadWriteCloser, error) {
	options := serial.OpenOptions{
		PortName:        s.Port,
		BaudRate:        s.Baud,
		DataBits:        8,
		ParityMode:      serial.PARITY_NONE,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	port, err := serial.Open(options)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", s.Port)
	}
	return port, nil
}

func (s Serial) String() string { return fmt.Sprintf("serial %s@%d", s.Port, s.Baud) }

// Socket is a TCP connection to a meter server.
type Socket struct {
	Addr    string
	Timeout time.Duration // dial timeout, zero means no limit
}

func (s Socket) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	d := net.Dialer{Timeout: s.Timeout}
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", s.Addr)
	}
	return conn, nil
}

func (s Socket) String() string { return "socket " + s.Addr }
