package protocol

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"

	"github.com/GoSim-25-26J-441/simtune/pkg/logger"
)

// Client talks to an oracle over TCP, one connection per request.
//
// There is no read deadline: an oracle that accepts a request and never
// answers blocks the caller indefinitely. The context is honoured while
// dialing only.
type Client struct {
	Addr   string
	Dialer *net.Dialer
}

// NewClient creates a client for host:port.
func NewClient(host string, port int) *Client {
	return &Client{
		Addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		Dialer: &net.Dialer{},
	}
}

// Send opens a connection, writes the request record, reads exactly one
// response record and closes the connection.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	payload, err := EncodeRequest(req)
	if err != nil {
		return nil, &ProtocolError{Reason: "can't encode request", Err: err}
	}

	dialer := c.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	logger.Debug("connecting to oracle", "addr", c.Addr)
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, &TransportError{Addr: c.Addr, Op: "dial", Err: err}
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		return nil, &TransportError{Addr: c.Addr, Op: "write", Err: err}
	}

	logger.Debug("waiting for oracle response", "addr", c.Addr)
	line, err := ReadRecord(bufio.NewReader(conn))
	if err != nil {
		return nil, &TransportError{Addr: c.Addr, Op: "read", Err: err}
	}
	return DecodeResponse(line)
}

// ReadRecord reads one terminated record. A record cut short by EOF is
// returned together with io.ErrUnexpectedEOF.
func ReadRecord(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice(recordTerminator)
		line = append(line, chunk...)
		if len(line) > MaxRecordSize {
			return nil, errors.New("record exceeds maximum size")
		}
		switch {
		case err == nil:
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			return line, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}
