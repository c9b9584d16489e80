// Package main はCLIツールのエントリポイント。
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"safelink-service/internal/infra"
	"safelink-service/pkg/safelink"
)

var (
	apiURL    string
	output    string
	timeout   time.Duration
	secretKey string
)

// HTTPクライアント
var httpClient *http.Client

func main() {
	rootCmd := &cobra.Command{
		Use:   "linkctl",
		Short: "SafeLink signed URL CLI",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if apiURL == "" {
				apiURL = os.Getenv("LINKCTL_API_URL")
			}
			if secretKey == "" {
				secretKey = os.Getenv("SAFELINK_SECRET_KEY")
			}
			httpClient = &http.Client{Timeout: timeout}
		},
		SilenceUsage: true,
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API endpoint URL (or set LINKCTL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&secretKey, "key", "", "Secret key (or set SAFELINK_SECRET_KEY)")

	// サブコマンド登録
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(wrapKeyCmd())
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("linkctl version %s\n", infra.Version)
		},
	}
}

func newLink(linkTimeout int64) (*safelink.SafeLink, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("--key is required (or set SAFELINK_SECRET_KEY)")
	}
	return safelink.New(safelink.WithSecretKey(secretKey), safelink.WithTimeout(linkTimeout))
}

// signCmd はリンクの署名コマンド。
func signCmd() *cobra.Command {
	var baseURL, data string
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign data into a URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			var value safelink.Value
			if err := json.Unmarshal([]byte(data), &value); err != nil {
				return fmt.Errorf("--data must be JSON: %w", err)
			}

			link, err := newLink(safelink.DefaultTimeout)
			if err != nil {
				return err
			}
			signed, err := link.SignURL(baseURL, value)
			if err != nil {
				return err
			}

			if output == "json" {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{"url": signed})
			}
			fmt.Println(signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "Base URL (required)")
	cmd.Flags().StringVar(&data, "data", "", "JSON data to sign (required)")
	cmd.MarkFlagRequired("url")
	cmd.MarkFlagRequired("data")
	return cmd
}

// verifyCmd は署名済みURLの検証コマンド。失敗理由をそのまま表示する。
func verifyCmd() *cobra.Command {
	var linkTimeout int64
	cmd := &cobra.Command{
		Use:   "verify <signed-url>",
		Short: "Verify a signed URL and print its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid url: %w", err)
			}

			link, err := newLink(linkTimeout)
			if err != nil {
				return err
			}
			result, err := link.Verify(safelink.ParamsFromQuery(u.Query()))
			if err != nil {
				return err
			}

			if output == "json" {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"data":      result.Data,
					"timestamp": result.Timestamp,
				})
			}
			b, err := json.Marshal(result.Data)
			if err != nil {
				return err
			}
			fmt.Printf("data:      %s\n", b)
			fmt.Printf("issued at: %s\n", time.Unix(result.Timestamp, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Int64Var(&linkTimeout, "link-timeout", safelink.DefaultTimeout, "Link lifetime in seconds")
	return cmd
}

// eventsCmd は監査イベント一覧の取得コマンド。
func eventsCmd() *cobra.Command {
	var operation string
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent link events from the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				return fmt.Errorf("--api-url is required (or set LINKCTL_API_URL)")
			}

			q := url.Values{}
			if operation != "" {
				q.Set("operation", operation)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			endpoint := apiURL + "/v1/links/events"
			if len(q) > 0 {
				endpoint += "?" + q.Encode()
			}

			resp, err := httpClient.Get(endpoint)
			if err != nil {
				return fmt.Errorf("API request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}

			if resp.StatusCode != http.StatusOK {
				return handleErrorResponse(resp.StatusCode, body)
			}

			if output == "json" {
				fmt.Println(string(body))
				return nil
			}

			var result struct {
				Events []struct {
					Operation string `json:"operation"`
					Result    string `json:"result"`
					Reason    string `json:"reason"`
					BaseURL   string `json:"base_url"`
					CreatedAt string `json:"created_at"`
				} `json:"events"`
			}
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}

			fmt.Printf("%-22s %-8s %-8s %s\n", "CREATED_AT", "OP", "RESULT", "DETAIL")
			for _, e := range result.Events {
				detail := e.BaseURL
				if e.Reason != "" {
					detail = e.Reason
				}
				fmt.Printf("%-22s %-8s %-8s %s\n", e.CreatedAt, e.Operation, e.Result, detail)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "Filter by operation: sign, verify")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of events")
	return cmd
}

func handleErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("Error: %s", errResp.Message)
	}
	return fmt.Errorf("Error: server returned status %d", statusCode)
}
