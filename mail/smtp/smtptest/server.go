// Package smtptest provides an in-process SMTP submission server for tests,
// in the spirit of net/http/httptest.
package smtptest

import (
	"bufio"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Options tune the server behaviour.
type Options struct {
	// Username and Password enable AUTH PLAIN and make it mandatory.
	Username string
	Password string
	// TLSConfig enables STARTTLS.
	TLSConfig *tls.Config
	// DropOnData closes the connection after the message body is received
	// and before it is acknowledged.
	DropOnData bool
}

// Message is one accepted mail transaction.
type Message struct {
	From string
	To   []string
	Data []byte
}

// Server is a minimal SMTP server listening on 127.0.0.1.
type Server struct {
	listener net.Listener
	opts     Options

	mu       sync.Mutex
	messages []Message
	sessions int
	conns    map[net.Conn]struct{}

	wg sync.WaitGroup
}

// NewServer starts a server on a random local port.
func NewServer(opts Options) (*Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "failed to listen")
	}

	s := &Server{listener: listener, opts: opts, conns: map[net.Conn]struct{}{}}
	s.wg.Add(1)
	go s.serve()

	return s, nil
}

// Host returns the listening host.
func (s *Server) Host() string {
	return s.listener.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Messages returns accepted messages in arrival order.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Message(nil), s.messages...)
}

// Sessions returns the number of accepted connections.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions
}

// Close stops accepting connections, drops open sessions and waits for
// their goroutines.
func (s *Server) Close() error {
	err := s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.sessions++
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				_ = conn.Close()
			}()
			(&session{server: s}).run(conn)
		}()
	}
}

type session struct {
	server *Server
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	tls    bool
	authed bool
	from   string
	to     []string
}

func (ss *session) run(conn net.Conn) {
	ss.attach(conn)
	ss.reply("220 localhost.test ESMTP smtptest")

	for {
		line, err := ss.reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		fields := strings.Fields(line)
		if len(fields) == 0 {
			ss.reply("500 5.5.2 Empty command")
			continue
		}

		switch verb := strings.ToUpper(fields[0]); verb {
		case "EHLO", "HELO":
			ss.ehlo()
		case "STARTTLS":
			if ss.server.opts.TLSConfig == nil || ss.tls {
				ss.reply("502 5.5.1 STARTTLS not available")
				continue
			}
			ss.reply("220 2.0.0 Ready to start TLS")
			tlsConn := tls.Server(ss.conn, ss.server.opts.TLSConfig)
			if err := tlsConn.Handshake(); err != nil {
				return
			}
			ss.attach(tlsConn)
			ss.tls = true
			ss.reset()
		case "AUTH":
			ss.auth(fields)
		case "*":
			ss.reply("501 5.7.0 Authentication cancelled")
		case "MAIL":
			if ss.authRequired() && !ss.authed {
				ss.reply("530 5.7.0 Authentication required")
				continue
			}
			ss.from = pathArg(line)
			ss.reply("250 2.1.0 OK")
		case "RCPT":
			if ss.from == "" {
				ss.reply("503 5.5.1 MAIL first")
				continue
			}
			ss.to = append(ss.to, pathArg(line))
			ss.reply("250 2.1.5 OK")
		case "DATA":
			if len(ss.to) == 0 {
				ss.reply("503 5.5.1 RCPT first")
				continue
			}
			ss.reply("354 End data with <CR><LF>.<CR><LF>")
			data, err := ss.readData()
			if err != nil || ss.server.opts.DropOnData {
				return
			}
			ss.server.mu.Lock()
			ss.server.messages = append(ss.server.messages, Message{From: ss.from, To: ss.to, Data: data})
			ss.server.mu.Unlock()
			ss.reset()
			ss.reply("250 2.0.0 OK queued")
		case "RSET":
			ss.reset()
			ss.reply("250 2.0.0 OK")
		case "NOOP":
			ss.reply("250 2.0.0 OK")
		case "QUIT":
			ss.reply("221 2.0.0 Bye")
			return
		default:
			ss.reply(fmt.Sprintf("502 5.5.1 Unrecognized command %s", verb))
		}
	}
}

func (ss *session) attach(conn net.Conn) {
	ss.conn = conn
	ss.reader = bufio.NewReader(conn)
	ss.writer = bufio.NewWriter(conn)
}

func (ss *session) reply(line string) {
	_, _ = ss.writer.WriteString(line + "\r\n")
	_ = ss.writer.Flush()
}

func (ss *session) ehlo() {
	lines := []string{"localhost.test"}
	if ss.server.opts.TLSConfig != nil && !ss.tls {
		lines = append(lines, "STARTTLS")
	}
	if ss.authRequired() {
		lines = append(lines, "AUTH PLAIN")
	}
	lines = append(lines, "SIZE 10240000")

	for i, l := range lines {
		sep := "-"
		if i == len(lines)-1 {
			sep = " "
		}
		_, _ = ss.writer.WriteString("250" + sep + l + "\r\n")
	}
	_ = ss.writer.Flush()
}

func (ss *session) authRequired() bool {
	return ss.server.opts.Username != ""
}

func (ss *session) auth(fields []string) {
	if len(fields) < 3 || strings.ToUpper(fields[1]) != "PLAIN" {
		ss.reply("504 5.5.4 Unrecognized authentication type")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		ss.reply("501 5.5.2 Cannot decode response")
		return
	}

	parts := strings.Split(string(raw), "\x00")
	if len(parts) != 3 || parts[1] != ss.server.opts.Username || parts[2] != ss.server.opts.Password {
		ss.reply("535 5.7.8 Username and Password not accepted")
		return
	}

	ss.authed = true
	ss.reply("235 2.7.0 Accepted")
}

func (ss *session) readData() ([]byte, error) {
	var data strings.Builder
	for {
		line, err := ss.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "." {
			return []byte(data.String()), nil
		}
		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}
		data.WriteString(line)
		data.WriteString("\r\n")
	}
}

func (ss *session) reset() {
	ss.from = ""
	ss.to = nil
}

// pathArg extracts the address between angle brackets.
func pathArg(line string) string {
	start := strings.Index(line, "<")
	end := strings.LastIndex(line, ">")
	if start < 0 || end < start {
		return ""
	}
	return line[start+1 : end]
}
