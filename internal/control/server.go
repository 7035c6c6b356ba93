// Package control implements the daemon's Unix-domain-socket command
// protocol: accept one connection, read one newline-terminated command,
// dispatch it, write one response, close.
package control

import (
	"bufio"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
	"github.com/msto63/speakd/internal/log"
)

// UsageError is the response body for an unrecognized command.
const UsageError = "error: unknown command\ncommands: status, stop, models, model <name>, continuous on|off, mic-warm on|off, reload"

// Handler dispatches one command string (already trimmed of its trailing
// newline) and returns the response body to send back.
type Handler func(cmd string) string

// Server is a Unix-domain-socket accept loop bound to SocketPath.
type Server struct {
	SocketPath string
	Handler    Handler
	logger     *log.Logger

	listener net.Listener
	done     chan struct{}
}

// NewServer builds a Server bound to path, dispatching accepted commands to
// handler.
func NewServer(path string, handler Handler, logger *log.Logger) *Server {
	return &Server{SocketPath: path, Handler: handler, logger: logger, done: make(chan struct{})}
}

// Start removes any stale socket file, binds, and begins accepting
// connections on its own goroutine.
func (s *Server) Start() error {
	_ = os.Remove(s.SocketPath)

	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return errs.Wrap(err, "bind control socket").WithCode(errkind.CodeInternal).WithDetail("path", s.SocketPath)
	}
	s.listener = listener

	go s.acceptLoop()
	return nil
}

// Stop closes the listener, unblocking the accept loop, and removes the
// socket file.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	<-s.done
	_ = os.Remove(s.SocketPath)
}

func (s *Server) acceptLoop() {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return
	}
	cmd := strings.TrimRight(line, "\r\n")

	response := s.Handler(cmd)
	if response == "" {
		return
	}
	if _, err := conn.Write([]byte(response)); err != nil {
		s.logger.WarnWithErr("failed to write control response", err)
	}
}

// DefaultSocketPath resolves $XDG_RUNTIME_DIR/speakd.sock, falling back to
// /tmp/speakd-<uid>.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir + "/speakd.sock"
	}
	return "/tmp/speakd-" + strconv.Itoa(os.Getuid()) + ".sock"
}
