package cli

import (
	"fmt"
	"os"

	"github.com/guiyumin/vkit/internal/core/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var initDefaults bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create vkit config file",
	Long: `Create config.yml interactively.

With --defaults, or when stdin is not a terminal, the file is written with
default values, overwriting any existing config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if initDefaults || !term.IsTerminal(int(os.Stdin.Fd())) {
			if err := config.Init(true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", config.SavePath())
			return nil
		}

		cfg, err := config.RunInitWizard()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\nSaved %s\n", config.SavePath())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "write defaults without prompting")
	rootCmd.AddCommand(initCmd)
}
