package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"xarchive/pkg/auth"
	"xarchive/pkg/ui"
)

// authCmd manages stored credentials
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage archive credentials",
	Long: `Manage stored credentials securely.

Credentials live in the system keychain when one is available; environment
variables with the same names override stored values.

Known credential names:
  TWITTER_COOKIES       browser cookie export for x.com
  COOKIES_115           browser cookie export for 115.com
  COOKIES_QUARK         browser cookie export for quark.cn
  GOOGLE_PHOTOS_TOKEN   base64-encoded OAuth token blob

Never share your credentials or config files!`,
}

// authSetCmd stores one credential in the keychain
var authSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a credential in the system keychain",
	Long: `Store a credential in the system keychain.

The value is read from standard input, so large cookie exports can be
piped straight in.`,
	Example: `  # Paste interactively, finish with EOF (Ctrl-D)
  xarchive auth set TWITTER_COOKIES

  # Pipe a cookie export file
  xarchive auth set COOKIES_115 < cookies_115.json`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthSet,
}

// authDeleteCmd removes one credential from the keychain
var authDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthDelete,
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	name := strings.ToUpper(args[0])

	store, err := auth.NewKeyringStore()
	if err != nil {
		return fmt.Errorf("system keychain unavailable: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Paste the value for %s, then press Ctrl-D:\n", name)
	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}
	value := strings.TrimSpace(strings.Join(lines, "\n"))
	if value == "" {
		return fmt.Errorf("empty value, nothing stored")
	}

	if err := store.Set(name, value); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	ui.PrintSuccess("Stored %s in the system keychain", name)
	return nil
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	name := strings.ToUpper(args[0])

	store, err := auth.NewKeyringStore()
	if err != nil {
		return fmt.Errorf("system keychain unavailable: %w", err)
	}
	if err := store.Delete(name); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	ui.PrintSuccess("Removed %s from the system keychain", name)
	return nil
}

func init() {
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authDeleteCmd)
	rootCmd.AddCommand(authCmd)
}
