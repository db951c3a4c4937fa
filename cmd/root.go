// Package cmd implements the command-line interface for gelatinarm.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gitman-101111/gelatinarm-sub002/color"
	"github.com/gitman-101111/gelatinarm-sub002/constant"
	"github.com/gitman-101111/gelatinarm-sub002/icon"
	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/style"
	"github.com/gitman-101111/gelatinarm-sub002/util"
	"github.com/gitman-101111/gelatinarm-sub002/version"
	"github.com/gitman-101111/gelatinarm-sub002/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, square)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.PersistentFlags().BoolP("write-history", "H", true, "Persist playback progress to the localized watch history")
	lo.Must0(viper.BindPFlag(key.HistorySaveOnPlay, rootCmd.PersistentFlags().Lookup("write-history")))

	rootCmd.PersistentFlags().String("server", "", "Base URL of the media server")
	lo.Must0(viper.BindPFlag(key.ServerURL, rootCmd.PersistentFlags().Lookup("server")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})

	// Initialize cleanup of localized temporary files on application startup.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for the gelatinarm application.
var rootCmd = &cobra.Command{
	Use:   constant.Gelatinarm,
	Short: "A resilient command-line playback client for media servers",
	Long: style.New().Bold(true).Foreground(color.HiPurple).Render("  "+constant.Gelatinarm) + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - A playback client that keeps one continuous timeline across adaptive stream restarts"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
