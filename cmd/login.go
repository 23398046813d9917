package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/kite-autologin/internal/config"
	"github.com/xkilldash9x/kite-autologin/internal/observability"
	"github.com/xkilldash9x/kite-autologin/pkg/autologin"
)

// requestToken is swapped out in tests.
var requestToken = autologin.RequestToken

// loginFlagKeys maps the login command's flags to their viper keys.
var loginFlagKeys = map[string]string{
	"credentials": "login.credentials_file",
	"headless":    "browser.headless",
	"login-url":   "login.login_url",
}

// newLoginCmd creates the `login` command. Only the token is written to stdout.
func newLoginCmd(v *viper.Viper) *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in through the browser and print the request token",
		Args:  cobra.NoArgs,
		// Flags override the config file and environment once bound.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindLoginFlags(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Re-read now that the flags are bound.
			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to apply flag overrides: %w", err)
			}

			token, err := requestToken(cmd.Context(), cfg,
				autologin.WithLogger(observability.GetLogger()),
				autologin.WithConsole(cmd.ErrOrStderr()),
			)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	flags := loginCmd.Flags()
	flags.String("credentials", "", "credentials file (default is ./login.json)")
	flags.Bool("headless", true, "run the browser without a window")
	flags.String("login-url", "", "open this URL instead of the one derived from the API key")

	return loginCmd
}

func bindLoginFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range loginFlagKeys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}
