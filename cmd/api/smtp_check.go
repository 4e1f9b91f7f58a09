package main

import (
	"context"
	"fmt"
	"time"

	"go-contact-backend/config"
	"go-contact-backend/pkg/email"

	"github.com/spf13/cobra"
)

func newSMTPCheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "smtp-check",
		Short: "Connect and authenticate against the configured SMTP relay, then exit",
		Long: `smtp-check performs the same relay handshake the server runs at startup
and reports the result. No email is sent.

Example:
  contact-api smtp-check
  contact-api smtp-check --timeout 30s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			for _, key := range cfg.Missing() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is not set\n", key)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			mailer := email.NewSMTPMailer(cfg.SMTP())
			if err := mailer.Verify(ctx); err != nil {
				return fmt.Errorf("SMTP error (%s): %w", mailer.Addr(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SMTP ready (%s)\n", mailer.Addr())
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "handshake timeout")
	return cmd
}
