package control

import (
	"io"
	"net"

	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
)

// Client sends one command to a running daemon's control socket and
// returns its response.
type Client struct {
	SocketPath string
}

// NewClient returns a Client bound to path.
func NewClient(path string) *Client {
	return &Client{SocketPath: path}
}

// Send connects, writes cmd plus a newline, half-closes the write side, and
// reads the response until the server closes the connection.
func (c *Client) Send(cmd string) (string, error) {
	conn, err := net.Dial("unix", c.SocketPath)
	if err != nil {
		return "", errs.Wrap(err, "connect to control socket").
			WithCode(errkind.CodeInternal).
			WithDetail("path", c.SocketPath)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return "", errs.Wrap(err, "write command").WithCode(errkind.CodeInternal)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		_ = unixConn.CloseWrite()
	}

	response, err := io.ReadAll(conn)
	if err != nil {
		return "", errs.Wrap(err, "read response").WithCode(errkind.CodeInternal)
	}
	return string(response), nil
}
