// Package commands implements the CLI commands for campusmenu.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/campusmenu/internal/config"
	"github.com/jmylchreest/campusmenu/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "campusmenu",
	Short: "Collects university cafeteria menus and publishes them to the menu service",
	Long: `campusmenu scrapes the daily cafeteria pages, asks an LLM to pick out the
food items of each serving slot and posts the result to the menu service.

Examples:
  # Today's menu at 도담식당, printed as JSON
  campusmenu scrape -r dodam

  # Next week's 학생식당 menus, posted to dev and prod
  campusmenu week -r haksik --week next --post --prod --notify

  # Run every Sunday at 09:00 for all restaurants
  campusmenu schedule --cron "0 9 * * SUN"

  # Check extraction against a saved page without calling an LLM
  campusmenu inspect -f page.html -r dormitory -d 20240325`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Setup(viper.GetViper(), cfgFile)
	},
}

var cfgFile string

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./.campusmenu.yaml or $HOME/.campusmenu.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().Bool("json-logs", false, "emit logs as JSON")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logError("%v", err)
		return err
	}
	return nil
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
