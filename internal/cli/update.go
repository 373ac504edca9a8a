package cli

import (
	"fmt"

	"github.com/guiyumin/vkit/internal/updater"
	"github.com/spf13/cobra"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update vkit to the latest release",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !updateCheckOnly {
			return updater.Update(cmd.Context(), out)
		}

		latest, newer, err := updater.CheckUpdate(cmd.Context())
		if err != nil {
			return err
		}
		switch {
		case latest == nil:
			fmt.Fprintln(out, "No releases found")
		case newer:
			fmt.Fprintf(out, "New version available: %s (current v%s)\n", latest.Version(), updater.CurrentVersion())
		default:
			fmt.Fprintf(out, "Already up to date (v%s)\n", updater.CurrentVersion())
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only check whether a newer release exists")
	rootCmd.AddCommand(updateCmd)
}
