package cli

import (
	"strings"

	"github.com/guiyumin/vkit/internal/core/config"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for vkit.

Bash:
  # Add to ~/.bashrc:
  source <(vkit completion bash)

Zsh:
  # Add to ~/.zshrc:
  source <(vkit completion zsh)

Fish:
  vkit completion fish > ~/.config/fish/completions/vkit.fish

PowerShell:
  vkit completion powershell >> $PROFILE
`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(out)
		default:
			return cmd.Help()
		}
	},
}

// configKeys lists what `vkit config set/get` accept
var configKeys = []string{
	"language",
	"tts.provider",
	"tts.lang",
	"tts.slow",
	"tts.tld",
	"tts.input",
	"tts.output",
	"tts.verify",
	"tts.openai.model",
	"tts.openai.voice",
	"tts.openai.speed",
	"tts.openai.base_url",
	"ffmpeg.url",
	"ffmpeg.dir",
	"ffmpeg.min_size",
	"ffmpeg.timeout",
}

var providers = []string{"google", "openai"}

func init() {
	rootCmd.AddCommand(completionCmd)

	configSetCmd.ValidArgsFunction = completeConfigArgs
	configGetCmd.ValidArgsFunction = completeConfigArgs
}

func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return filterPrefix(values, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

func fileCompletion(exts ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return exts, cobra.ShellCompDirectiveFilterFileExt
	}
}

// completeConfigArgs completes the key, then known values for a few keys
func completeConfigArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return filterPrefix(configKeys, toComplete), cobra.ShellCompDirectiveNoFileComp
	}
	if cmd != configSetCmd || len(args) > 1 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	switch args[0] {
	case "language":
		return filterPrefix([]string{"en", "zh"}, toComplete), cobra.ShellCompDirectiveNoFileComp
	case "tts.provider":
		return filterPrefix(providers, toComplete), cobra.ShellCompDirectiveNoFileComp
	case "tts.lang":
		return filterPrefix(config.SpeechLanguages(), toComplete), cobra.ShellCompDirectiveNoFileComp
	case "tts.slow", "tts.verify":
		return filterPrefix([]string{"true", "false"}, toComplete), cobra.ShellCompDirectiveNoFileComp
	case "tts.input", "tts.output", "ffmpeg.dir":
		return nil, cobra.ShellCompDirectiveDefault
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func filterPrefix(values []string, prefix string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}
