package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/shopauth"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users in the directory",
}

func setAdminCmd(use, short string, admin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " EMAIL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sqlitePath == "" {
				return errNeedsSQLite
			}
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			dir, closeDir, err := openDirectory(ctx, logger)
			if err != nil {
				return err
			}
			defer closeDir()

			user, err := dir.FindByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("find %s: %w", args[0], err)
			}
			if err := dir.SetAdmin(ctx, user.ID, admin); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s admin=%t\n", user.Email, admin)
			return nil
		},
	}
}

var (
	totpSecret string
	totpCode   string
)

var enrolTOTPCmd = &cobra.Command{
	Use:   "enrol-totp EMAIL",
	Short: "Enrol a TOTP second factor for a user",
	Long: `Without --code, prints a fresh secret and its provisioning URI and stores nothing.
Run again with --secret and --code from the authenticator to store the secret.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sqlitePath == "" {
			return errNeedsSQLite
		}
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		d, err := openDeps(ctx, logger, shopauth.DefaultConfig(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		user, err := d.directory.FindByEmail(ctx, args[0])
		if err != nil {
			return fmt.Errorf("find %s: %w", args[0], err)
		}

		if totpCode == "" {
			enrolment, err := d.engine.NewSecondFactor(ctx, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "secret: %s\nuri: %s\n", enrolment.Secret, enrolment.URI)
			return nil
		}

		if err := d.engine.ConfirmSecondFactor(ctx, user.ID, totpSecret, totpCode); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s totp=enabled\n", user.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(
		setAdminCmd("grant-admin", "Make a user an administrator", true),
		setAdminCmd("revoke-admin", "Make an administrator a customer", false),
		enrolTOTPCmd,
	)
	enrolTOTPCmd.Flags().StringVar(&totpSecret, "secret", "", "Secret printed by the first run")
	enrolTOTPCmd.Flags().StringVar(&totpCode, "code", "", "Current code from the authenticator")
}
