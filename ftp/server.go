package ftp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/zeinabtofaili/FTP-Server/users"
)

// DefaultPasvAcceptTimeout bounds how long a passive listener waits for the
// client to connect before the transfer is abandoned.
const DefaultPasvAcceptTimeout = 30 * time.Second

// Server accepts control connections and runs a session per client. Each
// logged-in user is sandboxed under <root>/<username>, created on first
// login.
type Server struct {
	addr  string
	root  string
	users users.Users

	logger *slog.Logger

	// publicIP is the IPv4 address advertised in 227 replies.
	publicIP [4]byte

	// PasvAcceptTimeout bounds the wait for the client's data connection
	// after PASV. Set before Start.
	PasvAcceptTimeout time.Duration

	listener net.Listener
	sessions *SessionManager
	closed   atomic.Bool
}

// NewServer returns a server listening on addr once started, storing user
// directories under root and authenticating against store.
func NewServer(addr, root string, store users.Users) *Server {
	return &Server{
		addr:              addr,
		root:              root,
		users:             store,
		logger:            slog.Default(),
		publicIP:          [4]byte{127, 0, 0, 1},
		PasvAcceptTimeout: DefaultPasvAcceptTimeout,
		sessions:          NewSessionManager(),
	}
}

// SetLogger replaces the server's logger. Must be called before Start.
func (srv *Server) SetLogger(l *slog.Logger) {
	srv.logger = l
}

// SetPublicIPv4 sets the address advertised to clients in PASV replies.
// It fails on anything that is not a literal IPv4 address.
func (srv *Server) SetPublicIPv4(addr string) error {
	ip := net.ParseIP(addr)
	if ip == nil {
		return fmt.Errorf("invalid public IP %q", addr)
	}
	v4 := ip.To4()
	if v4 == nil {
		return fmt.Errorf("public IP %q is not IPv4", addr)
	}
	copy(srv.publicIP[:], v4)
	return nil
}

// Addr returns the bound control address, nil before Start.
func (srv *Server) Addr() net.Addr {
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

// Start binds the control listener and begins serving in a new goroutine.
func (srv *Server) Start() error {
	l, err := net.Listen("tcp", srv.addr)
	if err != nil {
		return fmt.Errorf("binding control listener: %w", err)
	}
	srv.listener = l
	srv.logger.Info("server listening", "addr", l.Addr().String(), "root", srv.root)
	go srv.serve()
	return nil
}

func (srv *Server) serve() {
	for {
		conn, err := srv.listener.Accept()
		if err != nil {
			if srv.closed.Load() {
				return
			}
			srv.logger.Error("accept failed", "err", err)
			return
		}
		go srv.handleConnection(conn)
	}
}

// Close stops the control listener and tears down every live session,
// aggregating the errors.
func (srv *Server) Close() error {
	if !srv.closed.CompareAndSwap(false, true) {
		return nil
	}
	var result *multierror.Error
	if srv.listener != nil {
		if err := srv.listener.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing control listener: %w", err))
		}
	}
	for _, s := range srv.sessions.All() {
		s.close()
		srv.sessions.Remove(s)
	}
	return result.ErrorOrNil()
}

// userDir is the sandbox root for a user, created on first login.
func (srv *Server) userDir(username string) string {
	return filepath.Join(srv.root, username)
}

// authenticate checks a username/password pair against the store. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (srv *Server) authenticate(username, password string) bool {
	u, err := srv.users.Get(username)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			srv.logger.Error("user lookup failed", "user", username, "err", err)
		}
		return false
	}
	return users.Verify(u.PasswordHash, password)
}
