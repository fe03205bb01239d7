package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect Manager configuration",
}

var configLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate and lint a Manager configuration",
	Long: `lint builds a Manager configuration from flags and SESSIONCTL_* variables,
validates it and reports settings that are legal but usually unintended.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromSettings()
		if err := cfg.Validate(); err != nil {
			pterm.Error.Println(err)
			return err
		}

		warnings := cfg.Lint()
		if len(warnings) == 0 {
			pterm.Success.Println("Configuration is valid with no warnings.")
			return nil
		}
		table := pterm.TableData{{"CODE", "MESSAGE"}}
		for _, w := range warnings {
			table = append(table, []string{w.Code, w.Message})
		}
		pterm.Warning.Printf("%d warning(s):\n", len(warnings))
		return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	},
}

func init() {
	def := goSession.DefaultConfig()
	f := configLintCmd.Flags()
	f.Bool("metrics", def.Metrics.Enabled, "enable counters")
	f.Bool("latency-histograms", def.Metrics.EnableLatencyHistograms, "enable latency histograms")
	f.Bool("audit", def.Audit.Enabled, "enable audit delivery")
	f.Int("audit-buffer", def.Audit.BufferSize, "audit buffer size")
	f.Bool("audit-drop-if-full", def.Audit.DropIfFull, "drop audit events when the buffer is full")
	f.Int("watch-buffer", def.Watch.DefaultBuffer, "default watch channel buffer")
	f.Int("max-watchers", def.Watch.MaxWatchers, "maximum concurrent watchers, 0 for unlimited")
	f.Bool("reload-on-user-change", def.Profiles.ReloadOnUserChange, "reload profiles when a different user signs in")

	configCmd.AddCommand(configLintCmd)
}

func configFromSettings() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.Metrics.Enabled = settings.GetBool("metrics")
	cfg.Metrics.EnableLatencyHistograms = settings.GetBool("latency-histograms")
	cfg.Audit.Enabled = settings.GetBool("audit")
	cfg.Audit.BufferSize = settings.GetInt("audit-buffer")
	cfg.Audit.DropIfFull = settings.GetBool("audit-drop-if-full")
	cfg.Watch.DefaultBuffer = settings.GetInt("watch-buffer")
	cfg.Watch.MaxWatchers = settings.GetInt("max-watchers")
	cfg.Profiles.ReloadOnUserChange = settings.GetBool("reload-on-user-change")
	return cfg
}
