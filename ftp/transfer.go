package ftp

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"
)

func (s *Session) handlePASV(string) error {
	if !s.requireAuth() {
		return nil
	}
	l, err := net.ListenTCP("tcp4", &net.TCPAddr{Port: 0})
	if err != nil {
		s.logger.Error("binding passive listener", "err", err)
		s.reply(StatusCantOpenDataConnection, "Can't open data connection.")
		return nil
	}
	port := l.Addr().(*net.TCPAddr).Port
	s.setPassive(l)
	ip := s.server.publicIP
	s.reply(StatusEnteringPassiveMode, fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d)",
		ip[0], ip[1], ip[2], ip[3], port/256, port%256))
	return nil
}

// acceptData waits for the client's connection on a passive listener,
// bounded by the server's accept timeout. The listener is closed before
// returning either way; each PASV serves exactly one transfer.
func (s *Session) acceptData(l *net.TCPListener) (net.Conn, error) {
	defer l.Close()
	if err := l.SetDeadline(time.Now().Add(s.server.PasvAcceptTimeout)); err != nil {
		return nil, err
	}
	return l.AcceptTCP()
}

func (s *Session) handleLIST(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	resolved := s.resolve(arg)
	if _, err := s.statDir(resolved); err != nil {
		if l := s.detachPassive(); l != nil {
			l.Close()
		}
		s.reply(StatusFileUnavailable, "File or directory not found.")
		return nil
	}
	l := s.detachPassive()
	if l == nil {
		s.reply(StatusCantOpenDataConnection, "Use PASV first.")
		return nil
	}
	s.transferWG.Add(1)
	go func() {
		defer s.transferWG.Done()
		conn, err := s.acceptData(l)
		if err != nil {
			s.logger.Error("data accept failed", "err", err)
			s.reply(StatusCantOpenDataConnection, "Can't open data connection.")
			return
		}
		defer conn.Close()
		if err := writeListing(conn, resolved); err != nil {
			s.logger.Error("listing failed", "path", resolved, "err", err)
			s.reply(StatusTransferAborted, "Connection closed; transfer aborted.")
			return
		}
		s.reply(StatusClosingDataConnection, "Transfer complete.")
	}()
	return nil
}

// writeListing sends one record per directory entry in the long Unix
// format most clients parse, sorted by name.
func writeListing(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if _, err := io.WriteString(w, listRecord(info)+"\r\n"); err != nil {
			return err
		}
	}
	return nil
}

func listRecord(info fs.FileInfo) string {
	kind := "-"
	if info.IsDir() {
		kind = "d"
	}
	mode := info.Mode().Perm()
	owner := [3]byte{'-', '-', '-'}
	if mode&0o400 != 0 {
		owner[0] = 'r'
	}
	if mode&0o200 != 0 {
		owner[1] = 'w'
	}
	if mode&0o100 != 0 {
		owner[2] = 'x'
	}
	return fmt.Sprintf("%s%srwxrwx 1 owner group %8d %s %s",
		kind, string(owner[:]), info.Size(), info.ModTime().Format("Jan 02 2006"), info.Name())
}

func (s *Session) handleRETR(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	resolved := s.resolve(arg)
	if !isDescendant(s.userRoot, resolved) {
		s.reply(StatusFileUnavailable, "File not found.")
		return nil
	}
	info, err := os.Stat(resolved)
	if err != nil {
		s.reply(StatusFileUnavailable, "File not found.")
		return nil
	}
	l := s.detachPassive()
	if l == nil {
		s.reply(StatusCantOpenDataConnection, "Use PASV first.")
		return nil
	}
	mode := "ASCII"
	if s.transferType == "I" {
		mode = "Binary"
	}
	s.reply(StatusFileStatusOK, fmt.Sprintf("Opening %s mode data connection for %s", mode, arg))
	isDir := info.IsDir()
	s.transferWG.Add(1)
	go func() {
		defer s.transferWG.Done()
		conn, err := s.acceptData(l)
		if err != nil {
			s.logger.Error("data accept failed", "err", err)
			s.reply(StatusCantOpenDataConnection, "Can't open data connection.")
			return
		}
		defer conn.Close()
		if isDir {
			err = writeArchive(conn, resolved)
		} else {
			err = sendFile(conn, resolved)
		}
		if err != nil {
			s.logger.Error("download failed", "path", resolved, "err", err)
			s.reply(StatusTransferAborted, "Connection closed; transfer aborted.")
			return
		}
		s.reply(StatusClosingDataConnection, "Transfer complete.")
	}()
	return nil
}

func sendFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// writeArchive streams a directory as a zip whose entry names are relative
// to the directory itself. Subdirectories get explicit "name/" entries so
// empty ones survive the round trip.
func writeArchive(w io.Writer, dir string) error {
	zw := zip.NewWriter(w)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}
		entry, err := zw.Create(name)
		if err != nil {
			return err
		}
		return sendFile(entry, p)
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (s *Session) handleSTOR(arg string) error {
	if !s.requireAuth() {
		return nil
	}
	if arg == "" {
		s.reply(StatusSyntaxErrorInParameters, "Syntax error in parameters or arguments.")
		return nil
	}
	target := s.resolveUnderCwd(arg)
	if !isWithinRoot(s.userRoot, target) || target == filepath.Clean(s.userRoot) {
		s.reply(StatusFileUnavailable, "Permission denied.")
		return nil
	}
	l := s.detachPassive()
	if l == nil {
		s.reply(StatusCantOpenDataConnection, "Use PASV first.")
		return nil
	}
	s.reply(StatusFileStatusOK, "Ok to send data.")
	s.transferWG.Add(1)
	go func() {
		defer s.transferWG.Done()
		conn, err := s.acceptData(l)
		if err != nil {
			s.logger.Error("data accept failed", "err", err)
			s.reply(StatusCantOpenDataConnection, "Can't open data connection.")
			return
		}
		defer conn.Close()
		if err := receiveFile(conn, target); err != nil {
			s.logger.Error("upload failed", "path", target, "err", err)
			s.reply(StatusTransferAborted, "Connection closed; transfer aborted.")
			return
		}
		s.reply(StatusClosingDataConnection, "Transfer complete.")
	}()
	return nil
}

func receiveFile(r io.Reader, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
