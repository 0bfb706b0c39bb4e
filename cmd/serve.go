package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/zeinabtofaili/FTP-Server/ftp"
	"github.com/zeinabtofaili/FTP-Server/users"
)

var serveFlags struct {
	addr        string
	root        string
	credentials string
	publicIP    string
	pasvTimeout time.Duration
	logLevel    string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := setupLogger(serveFlags.logLevel)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)

		store, err := users.LoadFile(serveFlags.credentials)
		if err != nil {
			return err
		}
		if len(store.List()) == 0 {
			logger.Warn("credentials file contains no users", "path", serveFlags.credentials)
		}

		if err := os.MkdirAll(serveFlags.root, 0o755); err != nil {
			return fmt.Errorf("creating storage root: %w", err)
		}

		srv := ftp.NewServer(serveFlags.addr, serveFlags.root, store)
		srv.SetLogger(logger)
		srv.PasvAcceptTimeout = serveFlags.pasvTimeout
		if err := srv.SetPublicIPv4(serveFlags.publicIP); err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		if err := srv.Close(); err != nil {
			logger.Error("shutdown finished with errors", "err", err)
		}
		return nil
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", envOr("FTP_SERVER_ADDR", ":2121"), "control listener address")
	f.StringVar(&serveFlags.root, "root", envOr("FTP_SERVER_ROOT", "./data"), "storage root holding per-user directories")
	f.StringVar(&serveFlags.credentials, "credentials", "users.csv", "credentials file of username,bcrypt-hash lines")
	f.StringVar(&serveFlags.publicIP, "public-ip", "127.0.0.1", "IPv4 address advertised in PASV replies")
	f.DurationVar(&serveFlags.pasvTimeout, "pasv-timeout", ftp.DefaultPasvAcceptTimeout, "how long a passive listener waits for the data connection")
	f.StringVar(&serveFlags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.AddCommand(serveCmd)
}

func setupLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	})), nil
}
