package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamscao/certledger/internal/auth"
	"github.com/adamscao/certledger/internal/qrscan"
)

var (
	totpAccount string
	totpQROut   string
)

var totpCmd = &cobra.Command{
	Use:   "totp",
	Short: "Manage the admin second factor",
}

var totpGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a TOTP secret for admin.totp_secret",
	Args:  cobra.NoArgs,
	RunE:  generateTOTP,
}

func init() {
	totpGenerateCmd.Flags().StringVar(&totpAccount, "account", "admin", "Account name shown in the authenticator app")
	totpGenerateCmd.Flags().StringVar(&totpQROut, "qr", "", "Also write the provisioning URL as a QR code PNG")
	totpCmd.AddCommand(totpGenerateCmd)
}

func generateTOTP(cmd *cobra.Command, args []string) error {
	key, err := auth.GenerateTOTP(totpAccount)
	if err != nil {
		return err
	}

	fmt.Printf("\nTOTP Secret: %s\n", key.Secret())
	fmt.Printf("TOTP URL:    %s\n", key.URL())

	if totpQROut != "" {
		png, err := qrscan.Encode(key.URL(), cfg.Certificates.QRSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(totpQROut, png, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", totpQROut, err)
		}
		fmt.Printf("QR code:     %s\n", totpQROut)
	}

	fmt.Printf("\nSet admin.totp_secret to the secret and scan the URL with a TOTP app\n")
	return nil
}
