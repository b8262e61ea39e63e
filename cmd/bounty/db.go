package cmd

import (
	"context"
	"fmt"

	"github.com/artfundry/bounty-server/internal/config"
	"github.com/artfundry/bounty-server/internal/db"
	"github.com/artfundry/bounty-server/internal/db/models"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Utility for database management",
}

func init() {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create all tables and seed the escrow account",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			err = conn.RunInTx(cmd.Context(), nil, func(ctx context.Context, tx bun.Tx) error {
				for _, table := range models.Tables() {
					if _, err := tx.NewCreateTable().
						Model(table).
						IfNotExists().
						Exec(ctx); err != nil {
						return fmt.Errorf("failed to create table: %w", err)
					}
				}

				escrow := &models.BuzzAccount{ID: models.EscrowAccountID}
				if _, err := tx.NewInsert().
					Model(escrow).
					On("CONFLICT (id) DO NOTHING").
					Exec(ctx); err != nil {
					return err
				}

				return nil
			})
			if err != nil {
				return err
			}

			fmt.Println("database initialized")
			return nil
		},
	}

	grantCmd := &cobra.Command{
		Use:   "grant <user-id> <amount>",
		Short: "Credit a user's buzz account (testing and support use)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			var amount int64
			if _, err := fmt.Sscanf(args[1], "%d", &amount); err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive integer")
			}

			account := &models.BuzzAccount{}
			if err := account.ID.UnmarshalText([]byte(args[0])); err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			account.Balance = amount

			_, err = conn.NewInsert().
				Model(account).
				On("CONFLICT (id) DO UPDATE").
				Set("balance = ba.balance + EXCLUDED.balance").
				Exec(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("credited %d to %s\n", amount, args[0])
			return nil
		},
	}

	dbCmd.AddCommand(initCmd, grantCmd)
}

func openDB(ctx context.Context) (*bun.DB, error) {
	driver, err := db.NewConnection(ctx, config.GetConfig())
	if err != nil {
		return nil, err
	}

	conn := driver.GetDB()
	conn.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(false),
		bundebug.FromEnv(),
	))
	conn.RegisterModel(models.JoinTables()...)

	return conn, nil
}
