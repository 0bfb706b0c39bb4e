// Package cmd wires the command-line interface for the FTP server binary.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ftp-server",
	Short: "A passive-mode FTP server with per-user sandboxed directories",
	Long: `ftp-server speaks the classic FTP control protocol on a single port and
serves each authenticated user a private directory tree below the storage
root. Credentials are bcrypt hashes loaded from a file; directory downloads
are streamed as zip archives.`,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// envOr returns the environment variable's value, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
