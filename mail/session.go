package mail

import (
	"context"
	"io"
	"sync"
)

type sessionKey struct{}

// Session carries a transport connection from Verify to Send within one
// delivery. Methods are safe on a nil Session.
type Session struct {
	mx   sync.Mutex
	conn io.Closer
}

// WithSession returns a context carrying a fresh Session. The caller closes
// the Session once the delivery is over.
func WithSession(ctx context.Context) (context.Context, *Session) {
	s := &Session{}
	return context.WithValue(ctx, sessionKey{}, s), s
}

// SessionFromContext returns the Session attached by WithSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

// Park stores conn, closing whatever was parked before.
func (s *Session) Park(conn io.Closer) {
	if s == nil {
		return
	}
	s.mx.Lock()
	prev := s.conn
	s.conn = conn
	s.mx.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

// Take removes the parked connection and returns it, or nil.
func (s *Session) Take() io.Closer {
	if s == nil {
		return nil
	}
	s.mx.Lock()
	defer s.mx.Unlock()

	conn := s.conn
	s.conn = nil
	return conn
}

// Close closes the parked connection, if any.
func (s *Session) Close() error {
	if conn := s.Take(); conn != nil {
		return conn.Close()
	}
	return nil
}
