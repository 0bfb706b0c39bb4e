package ftp

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// handleConnection runs the command loop for one control connection.
func (srv *Server) handleConnection(conn net.Conn) {
	s := &Session{
		server:       srv,
		conn:         conn,
		logger:       srv.logger.With("remote", conn.RemoteAddr().String()),
		workingDir:   "/",
		transferType: "A",
	}
	srv.sessions.Add(s)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panicked", "panic", r)
		}
		srv.sessions.Remove(s)
		s.close()
		s.logger.Info("session closed")
	}()

	s.logger.Info("session opened")
	s.reply(StatusServiceReady, "Connected to the FTP server")

	handlers := map[string]func(arg string) error{
		"USER": s.handleUSER,
		"PASS": s.handlePASS,
		"QUIT": s.handleQUIT,
		"NOOP": s.handleNOOP,
		"PWD":  s.handlePWD,
		"CWD":  s.handleCWD,
		"CDUP": s.handleCDUP,
		"TYPE": s.handleTYPE,
		"SIZE": s.handleSIZE,
		"MDTM": s.handleMDTM,
		"MKD":  s.handleMKD,
		"DELE": s.handleDELE,
		"RMD":  s.handleRMD,
		"RNFR": s.handleRNFR,
		"RNTO": s.handleRNTO,
		"PASV": s.handlePASV,
		"LIST": s.handleLIST,
		"RETR": s.handleRETR,
		"STOR": s.handleSTOR,
	}

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		verb, arg := parseCommand(line)
		if verb == "" {
			continue
		}
		s.logger.Debug("command", "verb", verb, "arg", arg)

		switch verb {
		case "AUTH", "EPSV", "EPRT":
			s.reply(StatusNotImplemented, "Command not implemented")
			continue
		}
		handler, ok := handlers[verb]
		if !ok {
			s.reply(StatusUnknownCommand, "command unrecognized")
			continue
		}
		if err := handler(arg); err != nil {
			if !errors.Is(err, errSessionClosed) {
				s.logger.Error("command failed", "verb", verb, "err", err)
			}
			return
		}
	}
}

// parseCommand splits a control line into an uppercased verb and at most
// one argument: only the first whitespace-delimited token after the verb
// counts, trailing tokens are dropped.
func parseCommand(line string) (verb, arg string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) > 1 {
		arg = fields[1]
	}
	return strings.ToUpper(fields[0]), arg
}

// requireAuth replies 530 and reports false when the session has not
// completed USER/PASS yet.
func (s *Session) requireAuth() bool {
	if !s.isAuthenticated {
		s.reply(StatusNotLoggedIn, "Not logged in")
		return false
	}
	return true
}

func (s *Session) handleUSER(arg string) error {
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	s.username = arg
	s.isAuthenticated = false
	s.reply(StatusUserOKNeedPassword, "Username okay, need password")
	return nil
}

func (s *Session) handlePASS(arg string) error {
	if s.username == "" {
		s.reply(StatusBadSequence, "Bad sequence of commands: Use USER before PASS.")
		return nil
	}
	if !s.server.authenticate(s.username, arg) {
		s.logger.Info("login rejected", "user", s.username)
		s.reply(StatusNotLoggedIn, "Not logged in")
		return nil
	}
	root := s.server.userDir(s.username)
	if err := os.MkdirAll(root, 0o755); err != nil {
		s.logger.Error("creating user directory", "user", s.username, "err", err)
		s.reply(StatusNotLoggedIn, "Not logged in")
		return nil
	}
	s.isAuthenticated = true
	s.userRoot = root
	s.workingDir = "/"
	s.logger.Info("login accepted", "user", s.username)
	s.reply(StatusUserLoggedIn, "User logged in, proceed")
	return nil
}

func (s *Session) handleQUIT(string) error {
	s.reply(StatusClosingControl, "Goodbye.")
	return errSessionClosed
}

func (s *Session) handleNOOP(string) error {
	s.reply(StatusCommandOK, "NOOP ok.")
	return nil
}

func (s *Session) handlePWD(string) error {
	if !s.requireAuth() {
		return nil
	}
	s.reply(StatusPathnameCreated, "\""+s.workingDir+"\"")
	return nil
}

func (s *Session) handleCWD(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	resolved := s.resolve(arg)
	if _, err := s.statDir(resolved); err != nil || !isDescendant(s.userRoot, resolved) {
		s.reply(StatusFileUnavailable, "Failed to change directory.")
		return nil
	}
	s.workingDir = s.relativeToRoot(resolved)
	s.reply(StatusFileActionOK, "Directory successfully changed.")
	return nil
}

func (s *Session) handleCDUP(string) error {
	if !s.requireAuth() {
		return nil
	}
	if s.workingDir == "/" {
		s.reply(StatusFileActionOK, "Directory already in user root.")
		return nil
	}
	parent := s.resolve("..")
	if _, err := s.statDir(parent); err != nil {
		s.reply(StatusFileUnavailable, "Cannot change to directory above root.")
		return nil
	}
	s.workingDir = path.Dir(s.workingDir)
	s.reply(StatusFileActionOK, "Directory successfully changed.")
	return nil
}

func (s *Session) handleTYPE(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	switch strings.ToUpper(arg) {
	case "A":
		s.transferType = "A"
		s.reply(StatusCommandOK, "Switching to ASCII mode.")
	case "I":
		s.transferType = "I"
		s.reply(StatusCommandOK, "Switching to Binary mode.")
	default:
		s.reply(StatusNotImplementedForParam, "Command not implemented for that parameter.")
	}
	return nil
}

func (s *Session) handleSIZE(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	info, err := s.statRegularFile(s.resolve(arg))
	if err != nil {
		s.reply(StatusFileUnavailable, "File not found.")
		return nil
	}
	s.reply(StatusFileStatus, fmt.Sprintf("%d", info.Size()))
	return nil
}

func (s *Session) handleMDTM(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	info, err := s.statRegularFile(s.resolve(arg))
	if err != nil {
		s.reply(StatusFileUnavailable, "File not found.")
		return nil
	}
	s.reply(StatusFileStatus, info.ModTime().UTC().Format("20060102150405"))
	return nil
}

func (s *Session) handleMKD(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	target := s.resolveUnderCwd(arg)
	if !isWithinRoot(s.userRoot, target) {
		s.reply(StatusFileUnavailable, "Permission denied.")
		return nil
	}
	if _, err := os.Stat(target); err == nil {
		s.reply(StatusFileUnavailable, "Directory already exists.")
		return nil
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		s.logger.Error("mkdir failed", "path", target, "err", err)
		s.reply(StatusFileUnavailable, "Failed to create directory.")
		return nil
	}
	s.reply(StatusPathnameCreated, "\""+arg+"\" created.")
	return nil
}

func (s *Session) handleDELE(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	target := s.resolve(arg)
	if _, err := s.statRegularFile(target); err != nil {
		s.reply(StatusFileUnavailable, "File not found or is a directory.")
		return nil
	}
	if err := os.Remove(target); err != nil {
		s.logger.Error("delete failed", "path", target, "err", err)
		s.reply(StatusFileActionNotTaken, "File deletion failed.")
		return nil
	}
	s.reply(StatusFileActionOK, "File deleted successfully.")
	return nil
}

func (s *Session) handleRMD(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	target := s.resolve(arg)
	if _, err := s.statDir(target); err != nil || !isDescendant(s.userRoot, target) {
		s.reply(StatusFileUnavailable, "Directory not found or is a file.")
		return nil
	}
	if err := os.Remove(target); err != nil {
		s.reply(StatusFileActionNotTaken, "Directory deletion failed. Directory might not be empty.")
		return nil
	}
	s.reply(StatusFileActionOK, "Directory deleted successfully.")
	return nil
}

func (s *Session) handleRNFR(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	source := s.resolve(arg)
	if _, err := os.Stat(source); err != nil || !isDescendant(s.userRoot, source) {
		s.reply(StatusFileUnavailable, "File or directory not found.")
		return nil
	}
	s.renamePath = source
	s.reply(StatusFileActionPending, "Ready for RNTO.")
	return nil
}

func (s *Session) handleRNTO(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if s.renamePath == "" {
		s.reply(StatusBadSequence, "Bad sequence of commands: Use RNFR before RNTO.")
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	target := s.resolveFromRoot(arg)
	// A conflict leaves the pending source set so the client can retry
	// with another name; any actual rename attempt consumes it.
	if _, err := os.Stat(target); err == nil && isWithinRoot(s.userRoot, target) {
		s.reply(StatusFileNameNotAllowed, "RNTO failed: File or directory already exists.")
		return nil
	}
	source := s.renamePath
	s.renamePath = ""
	if !isWithinRoot(s.userRoot, target) || target == filepath.Clean(s.userRoot) {
		s.reply(StatusFileUnavailable, "Rename failed.")
		return nil
	}
	if err := os.Rename(source, target); err != nil {
		s.logger.Error("rename failed", "from", source, "to", target, "err", err)
		s.reply(StatusFileUnavailable, "Rename failed.")
		return nil
	}
	s.reply(StatusFileActionOK, "File or directory renamed successfully.")
	return nil
}
