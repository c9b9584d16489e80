package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"safelink-service/internal/infra"
)

// wrapKeyCmd は秘密鍵をCloud KMSで暗号化し、SAFELINK_SECRET_KEY_CIPHERTEXT 用の値を出力する。
func wrapKeyCmd() *cobra.Command {
	var keyName string
	cmd := &cobra.Command{
		Use:   "wrap-key",
		Short: "Encrypt the secret key with Cloud KMS",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if secretKey == "" {
				return fmt.Errorf("--key is required (or set SAFELINK_SECRET_KEY)")
			}
			if keyName == "" {
				keyName = os.Getenv("KMS_KEY_NAME")
			}

			kmsClient, err := infra.NewKMSClient(ctx, keyName)
			if err != nil {
				return err
			}
			defer kmsClient.Close()

			wrapped, err := kmsClient.WrapSecret(ctx, secretKey)
			if err != nil {
				return fmt.Errorf("wrapping secret key: %w", err)
			}
			fmt.Println(wrapped)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyName, "kms-key", "", "Cloud KMS key name (or set KMS_KEY_NAME)")
	return cmd
}
