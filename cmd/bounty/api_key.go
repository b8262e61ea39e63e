package cmd

import (
	"fmt"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/artfundry/bounty-server/internal/db/repository"
	"github.com/artfundry/bounty-server/internal/utils/hashutil"
	"github.com/artfundry/bounty-server/internal/utils/randutil"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var apiKeyCmd = &cobra.Command{
	Use:   "api-key",
	Short: "Manage API keys",
}

func init() {
	var userFlag string

	newAPIKeyCmd := &cobra.Command{
		Use:   "new",
		Short: "Creates a new API key bound to a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			key, err := randutil.RandomString(32)
			if err != nil {
				return err
			}

			conn, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			repo := repository.NewAPIKeyRepository(conn)
			apiKey := models.NewAPIKey(userID, hashutil.Sha3256Hash([]byte(key)), randutil.MaskString(key, 4, 4))
			if _, err := repo.Create(cmd.Context(), apiKey); err != nil {
				return err
			}

			fmt.Printf("API key created: %s\n", key)
			return nil
		},
	}
	newAPIKeyCmd.Flags().StringVar(&userFlag, "user", "", "User id the key authenticates as")
	newAPIKeyCmd.MarkFlagRequired("user")

	revokeAPIKeyCmd := &cobra.Command{
		Use:   "revoke <key>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			repo := repository.NewAPIKeyRepository(conn)
			if err := repo.RevokeAPIKeyWithHash(cmd.Context(), hashutil.Sha3256Hash([]byte(args[0]))); err != nil {
				return err
			}

			fmt.Println("API key revoked")
			return nil
		},
	}

	listAPIKeysCmd := &cobra.Command{
		Use:   "list",
		Short: "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			repo := repository.NewAPIKeyRepository(conn)
			apiKeys, err := repo.ListAPIKeys(cmd.Context())
			if err != nil {
				return err
			}

			if len(apiKeys) == 0 {
				fmt.Println("No API keys found")
				return nil
			}

			fmt.Println("API keys:")
			for _, apiKey := range apiKeys {
				fmt.Printf("%s user=%s (Revoked: %t)\n", apiKey.KeyMask, apiKey.UserID, apiKey.IsRevoked)
			}

			return nil
		},
	}

	apiKeyCmd.AddCommand(newAPIKeyCmd, revokeAPIKeyCmd, listAPIKeysCmd)
}
