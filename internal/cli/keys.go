package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/pkg/jwt"
	"github.com/qs3c/metrics_go_server/internal/pkg/secret"
)

func newKeyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the secret encryption key",
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Print a new base64 key for crypto.secret_key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secret.GenerateKey()
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", key)
			return nil
		},
	}

	var (
		companyID int64
		ownerID   int64
		stripeKey string
	)
	connect := &cobra.Command{
		Use:   "connect",
		Short: "Encrypt and store a Stripe secret key for a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			if companyID <= 0 || stripeKey == "" {
				return errors.New("--company and --stripe-key are required")
			}
			c, err := opts.app()
			if err != nil {
				return err
			}
			if ownerID == 0 {
				company, err := c.CompanyRepo.GetByID(companyID)
				if err != nil {
					return err
				}
				ownerID = company.OwnerID
			}
			info, err := c.Company.ConnectStripe(ownerID, companyID, stripeKey)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "stripe key stored for company %d (%s)\n", info.ID, info.Name)
			return nil
		},
	}
	connect.Flags().Int64Var(&companyID, "company", 0, "company id")
	connect.Flags().Int64Var(&ownerID, "owner", 0, "owner user id, defaults to the company owner")
	connect.Flags().StringVar(&stripeKey, "stripe-key", "", "Stripe secret key")

	cmd.AddCommand(generate, connect)
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID   int64
		username string
		hours    int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 && username == "" {
				return errors.New("--user or --username is required")
			}
			c, err := opts.app()
			if err != nil {
				return err
			}

			var user *model.User
			if username != "" {
				user, err = c.UserRepo.GetByUsername(username)
			} else {
				user, err = c.UserRepo.GetByID(userID)
			}
			if err != nil {
				return err
			}

			if hours <= 0 {
				hours = c.Config.JWT.ExpireHours
			}
			token, err := jwt.GenerateToken(user.ID, c.Config.JWT.Secret, hours)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", token)
			printf(cmd.ErrOrStderr(), "user %d, expires in %s\n", user.ID, time.Duration(hours)*time.Hour)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&username, "username", "", "username, instead of --user")
	cmd.Flags().IntVar(&hours, "hours", 0, "lifetime in hours, defaults to jwt.expire_hours")
	return cmd
}
