package ftp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// Session is the per-control-connection state. A session is owned by the
// goroutine running its command loop; transfer goroutines it spawns only
// touch the connection through reply, which serializes writes with mu.
type Session struct {
	server *Server
	conn   net.Conn
	logger *slog.Logger

	username        string
	isAuthenticated bool

	// userRoot is the absolute sandbox root for the logged-in user.
	// workingDir is root-relative, always beginning with "/".
	userRoot   string
	workingDir string

	// transferType is "A" or "I"; new sessions start in ASCII per RFC 959.
	transferType string

	// renamePath holds the source set by RNFR until RNTO consumes it.
	renamePath string

	mu sync.Mutex
	// dataListener is the pending passive listener, nil when no PASV is
	// outstanding. Guarded by mu; a transfer goroutine takes sole ownership
	// of it through detachPassive.
	dataListener *net.TCPListener

	transferWG sync.WaitGroup
}

// reply writes a single "code text\r\n" response line. Safe to call from
// transfer goroutines concurrently with the command loop.
func (s *Session) reply(code StatusCode, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.conn, "%d %s\r\n", code, text); err != nil {
		s.logger.Debug("control write failed", "err", err)
		return
	}
	s.logger.Debug("reply", "code", code, "status", StatusText(code))
}

// detachPassive removes and returns the pending passive listener, or nil
// when no PASV is outstanding. The caller becomes responsible for closing
// the listener.
func (s *Session) detachPassive() *net.TCPListener {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.dataListener
	s.dataListener = nil
	return l
}

// setPassive installs a new passive listener, closing any previous one the
// client abandoned by issuing PASV twice.
func (s *Session) setPassive(l *net.TCPListener) {
	s.mu.Lock()
	old := s.dataListener
	s.dataListener = l
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// close tears the session down: any pending passive listener is closed,
// in-flight transfers are waited out, then the control connection drops.
func (s *Session) close() {
	if l := s.detachPassive(); l != nil {
		l.Close()
	}
	s.transferWG.Wait()
	s.conn.Close()
}

// SessionManager tracks the live sessions so the server can close them all
// on shutdown.
type SessionManager struct {
	sessions map[*Session]struct{}
	mu       sync.Mutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[*Session]struct{}),
	}
}

func (m *SessionManager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s] = struct{}{}
}

func (m *SessionManager) Remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s)
}

// All returns a snapshot of the live sessions.
func (m *SessionManager) All() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
