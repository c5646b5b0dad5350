// Package telegram validates Telegram Mini App init data.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ostapkoval/startrade/internal/common"
)

var (
	ErrMalformedInitData = errors.New("malformed init data")
	ErrMissingHash       = errors.New("init data has no hash")
	ErrHashMismatch      = errors.New("init data hash mismatch")
	ErrExpiredInitData   = errors.New("init data expired")
)

const DefaultMaxAge = 24 * time.Hour

// WebAppUser is the user object Telegram embeds in init data.
type WebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
}

// InitData is the parsed and verified payload of a Mini App launch.
type InitData struct {
	User     *WebAppUser
	QueryID  string
	AuthDate time.Time
}

// Validator checks Mini App init data signatures against a bot token.
type Validator struct {
	secretKey []byte
	maxAge    time.Duration
	logger    *common.Logger
}

// NewValidator derives the signing key from the bot token. A zero maxAge
// disables the freshness check.
func NewValidator(botToken string, maxAge time.Duration, logger *common.Logger) *Validator {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return &Validator{
		secretKey: mac.Sum(nil),
		maxAge:    maxAge,
		logger:    logger,
	}
}

// Validate verifies the signature and freshness of a raw init data query
// string and returns the parsed payload.
func (v *Validator) Validate(initData string) (*InitData, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	if !hmac.Equal([]byte(hash), []byte(checkHash(v.secretKey, values))) {
		return nil, ErrHashMismatch
	}

	parsed, err := parseInitData(values)
	if err != nil {
		return nil, err
	}

	if v.maxAge > 0 && time.Since(parsed.AuthDate) > v.maxAge {
		return nil, ErrExpiredInitData
	}

	return parsed, nil
}

// checkHash computes the expected hash over the data-check-string: fields
// sorted by key, joined as key=value lines.
func checkHash(secretKey []byte, values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(values.Get(k))
	}

	mac := hmac.New(sha256.New, secretKey)
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseInitData(values url.Values) (*InitData, error) {
	parsed := &InitData{
		QueryID: values.Get("query_id"),
	}

	if raw := values.Get("auth_date"); raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad auth_date %q", ErrMalformedInitData, raw)
		}
		parsed.AuthDate = time.Unix(unix, 0)
	}

	if raw := values.Get("user"); raw != "" {
		var user WebAppUser
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, fmt.Errorf("%w: bad user payload: %v", ErrMalformedInitData, err)
		}
		parsed.User = &user
	}

	return parsed, nil
}
