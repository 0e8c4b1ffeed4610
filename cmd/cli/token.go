package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"queuedesk/internal/config"
)

var (
	tokenUserID int
	tokenRole   string
	tokenTTLMin int
	tokenNoExp  bool
)

// tokenCmd mints an HS256 JWT accepted by the API's auth middleware. There is
// no login endpoint; operators issue tokens out of band.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a JWT (HS256) for API authentication",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		secret := cfg.JWT.Secret
		if secret == "" {
			return fmt.Errorf("jwt.secret is empty; set it in config")
		}
		now := time.Now()
		payload := map[string]interface{}{
			"iat":     now.Unix(),
			"user_id": tokenUserID,
			"sub":     strconv.Itoa(tokenUserID),
			"role":    tokenRole,
		}
		if !tokenNoExp {
			payload["exp"] = now.Add(time.Duration(tokenTTLMin) * time.Minute).Unix()
		}
		tok, err := createHS256JWT(payload, secret)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().IntVar(&tokenUserID, "user-id", 1, "numeric user id to embed in token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "admin", "role claim (requester, resolver, admin)")
	tokenCmd.Flags().IntVar(&tokenTTLMin, "ttl", 60, "token time-to-live in minutes")
	tokenCmd.Flags().BoolVar(&tokenNoExp, "no-exp", false, "do not include exp claim")
}

// createHS256JWT builds a compact JWT using HS256 with the given payload.
func createHS256JWT(payload map[string]interface{}, secret string) (string, error) {
	header := map[string]string{
		"alg": "HS256",
		"typ": "JWT",
	}
	headerJSON, _ := json.Marshal(header)
	payloadJSON, _ := json.Marshal(payload)
	enc := func(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

	signing := enc(headerJSON) + "." + enc(payloadJSON)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + enc(mac.Sum(nil)), nil
}
