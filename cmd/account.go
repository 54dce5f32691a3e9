package cmd

import (
	"context"
	"fmt"

	"membersync/core/config"
	"membersync/core/localdb"
	"membersync/feature/sync"
	"membersync/feature/sync/models"

	"github.com/spf13/cobra"
)

var accountToken string

// accountCmd is the parent command for account management.
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage registered accounts",
	Long:  `Register, list and remove the local accounts the engine synchronizes.`,
}

var accountAddCmd = &cobra.Command{
	Use:   "add <dni>",
	Short: "Register an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAccountStore()
		if err != nil {
			return err
		}
		acct := &models.Account{
			DNI:       args[0],
			Kind:      models.AccountKindPrimary,
			AuthToken: accountToken,
		}
		if err := store.Save(context.Background(), acct); err != nil {
			return err
		}
		fmt.Printf("Registered account %s\n", acct.DNI)
		return nil
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAccountStore()
		if err != nil {
			return err
		}
		accounts, err := store.ListAll(context.Background())
		if err != nil {
			return err
		}
		for _, a := range accounts {
			status := "ok"
			if a.AuthToken == "" {
				status = "no credential"
			}
			fmt.Printf("%s\t%s\t%s\n", a.DNI, a.Kind, status)
		}
		return nil
	},
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <dni>",
	Short: "Remove a registered account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openAccountStore()
		if err != nil {
			return err
		}
		if err := store.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed account %s\n", args[0])
		return nil
	},
}

func openAccountStore() (*sync.AccountStore, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	db, err := localdb.Connect(cfg.LocalDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	if err := db.AutoMigrate(&models.Account{}); err != nil {
		return nil, fmt.Errorf("failed to migrate accounts table: %w", err)
	}
	return sync.NewAccountStore(db), nil
}

func init() {
	accountAddCmd.Flags().StringVar(&accountToken, "token", "", "Auth token for the account")

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	RootCmd.AddCommand(accountCmd)
}
