package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vanpelt/aura/internal/models"
	"github.com/vanpelt/aura/internal/settings"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "🔑 Inspect and store provider API keys",
	Long: `# 🔑 Keys

Keys live in the local settings file used by **aura ask**. Server-side
fallback keys come from the environment or config file.`,
}

var keysCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which providers have a usable key",
	Args:  cobra.NoArgs,
	RunE:  runKeysCheck,
}

var keysSetCmd = &cobra.Command{
	Use:   "set <provider> [key]",
	Short: "Store a key in the local settings file; no key clears it",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runKeysSet,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCheckCmd)
	keysCmd.AddCommand(keysSetCmd)
}

func openLocalSettings(cmd *cobra.Command) (*settings.FileRepository, *settings.Store, error) {
	repo := settings.NewFileRepository(cfg.SettingsPath)
	st, err := settings.NewStore(cmd.Context(), repo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", repo.Path(), err)
	}
	return repo, st, nil
}

func runKeysCheck(cmd *cobra.Command, args []string) error {
	repo, st, err := openLocalSettings(cmd)
	if err != nil {
		return err
	}
	snap := st.Snapshot()
	server := serverKeys(cfg)

	fmt.Printf("Settings: %s\n\n", repo.Path())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSELECTED\tMODEL\tLOCAL KEY\tFORMAT\tSERVER KEY")
	for _, p := range models.Providers {
		local := snap.APIKeys[p]
		format := "-"
		if local != "" {
			format = "ok"
			if !settings.ValidateKey(p, local) {
				format = "⚠️ unexpected"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p, yesNo(snap.IsSelected(p)), snap.ModelFor(p), orDash(settings.MaskKey(local)), format, yesNo(server[p] != ""))
	}
	return w.Flush()
}

func runKeysSet(cmd *cobra.Command, args []string) error {
	p, err := models.ParseProvider(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	key := ""
	if len(args) == 2 {
		key = strings.TrimSpace(args[1])
	} else if key, err = readPassword(fmt.Sprintf("%s API key (empty clears): ", p)); err != nil {
		return err
	}

	_, st, err := openLocalSettings(cmd)
	if err != nil {
		return err
	}
	if err := st.SetAPIKey(cmd.Context(), p, key); err != nil {
		return err
	}
	switch {
	case key == "":
		fmt.Printf("🗑️  Cleared %s key\n", p)
	case !settings.ValidateKey(p, key):
		fmt.Printf("⚠️  Saved %s key, but it does not look like a %s key\n", p, p)
	default:
		fmt.Printf("✅ Saved %s key %s\n", p, settings.MaskKey(key))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
