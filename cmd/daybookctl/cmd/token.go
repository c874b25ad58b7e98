package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"daybook/internal/config"
	"daybook/internal/middleware"
)

var (
	tokenActor string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an actor",
	Long: `Sign a token with JWT_SECRET whose subject is the actor recorded on
every transaction the bearer creates.

Example:
  daybookctl token --actor ana@example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		ttl := tokenTTL
		if ttl == 0 {
			ttl = cfg.TokenTTL
		}
		token, err := middleware.IssueToken(cfg.JWTSecret, tokenActor, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenActor, "actor", "", "identity to embed in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default TOKEN_TTL)")
	_ = tokenCmd.MarkFlagRequired("actor")
}
