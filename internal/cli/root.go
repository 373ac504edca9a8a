package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/guiyumin/vkit/internal/core/version"
	"github.com/spf13/cobra"
)

// errReported signals that the command already printed its failure
var errReported = errors.New("failure already reported")

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "vkit",
	Short:         "Text-to-speech and FFmpeg setup toolkit",
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFlags(0)
		if !verbose {
			log.SetOutput(io.Discard)
		} else {
			log.SetOutput(cmd.ErrOrStderr())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostic logs")
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		}
		return 1
	}
	return 0
}
