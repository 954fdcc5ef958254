package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vanpelt/aura/internal/auth"
	"github.com/vanpelt/aura/internal/store"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "👤 Manage workstation accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an account, prompting for the password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserCreate,
}

var userHistoryCmd = &cobra.Command{
	Use:   "history <email>",
	Short: "Show an account's recent chat interactions",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userHistoryCmd)
	userHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of rows")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	email := auth.NormalizeEmail(args[0])
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	if err := auth.ValidateSignup(email, password); err != nil {
		return err
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		confirm, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if confirm != password {
			return fmt.Errorf("passwords do not match")
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := db.CreateUser(cmd.Context(), email, hash)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Created user %d (%s)\n", user.ID, user.Email)
	return nil
}

// readPassword reads without echo from a terminal, or one line from a pipe
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(data), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runUserHistory(cmd *cobra.Command, args []string) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := db.UserByEmail(cmd.Context(), auth.NormalizeEmail(args[0]))
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", args[0], err)
	}
	rows, err := db.RecentInteractions(cmd.Context(), user.ID, historyLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPROVIDER\tMODEL\tPROMPT\tRESPONSE\tSTATUS")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.Timestamp.Local().Format("2006-01-02 15:04"), r.Provider, r.Model, r.PromptLength, r.ResponseLength, r.Status)
	}
	return w.Flush()
}
