// Package cmd implements the command-line interface for gelatinarm.
package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/gitman-101111/gelatinarm-sub002/auth"
	"github.com/gitman-101111/gelatinarm-sub002/icon"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

// authCmd manages authentication against the configured media server.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage media server authentication",
}

// authLoginCmd exchanges a username and password for an access token and
// persists it to the system keyring.
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with the media server and save the access token to the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		var username, password string

		if err := survey.AskOne(&survey.Input{Message: "Username:"}, &username, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password); err != nil {
			return err
		}

		token, err := auth.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		if err := auth.SetToken(token); err != nil {
			return fmt.Errorf("persist token: %w", err)
		}

		fmt.Printf("%s Access token successfully persisted to the system keyring.\n", icon.Get(icon.Success))
		return nil
	},
}

// authStatusCmd reports whether an access token is available.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an access token is available",
	Run: func(cmd *cobra.Command, args []string) {
		if auth.Token() == "" {
			fmt.Printf("%s No access token found. Run `auth login` first.\n", icon.Get(icon.Fail))
			return
		}
		fmt.Printf("%s Access token present.\n", icon.Get(icon.Success))
	},
}

// authLogoutCmd removes the stored access token from the system keyring.
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored access token from the system keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.DeleteToken(); err != nil {
			return fmt.Errorf("remove token: %w", err)
		}
		fmt.Printf("%s Access token removed.\n", icon.Get(icon.Success))
		return nil
	},
}
