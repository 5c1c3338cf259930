package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"rps_challenge/internal/domain"
)

var (
	ErrInvalidInitData = errors.New("invalid init data")
	ErrStaleInitData   = errors.New("init data expired")
	ErrNoUser          = errors.New("init data has no user")
)

const (
	// MaxInitDataLen bounds what the auth endpoint accepts.
	MaxInitDataLen = 4096

	maxAge    = time.Hour
	maxSkew   = 5 * time.Minute
	webAppKey = "WebAppData"
)

// WebAppUser is the user object embedded in init data.
type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

func (u WebAppUser) Player() domain.Player {
	return domain.Player{ID: u.ID, Username: u.Username, FirstName: u.FirstName}
}

// ValidateInitData verifies the WebApp init_data signature and that
// auth_date is recent, then returns the signed fields.
func ValidateInitData(initData, botToken string, now time.Time) (url.Values, error) {
	if len(initData) > MaxInitDataLen {
		return nil, ErrInvalidInitData
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInvalidInitData
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrInvalidInitData
	}
	values.Del("hash")

	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	if !hmac.Equal(Sign(values, botToken), provided) {
		return nil, ErrInvalidInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrInvalidInitData
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > maxAge || age < -maxSkew {
		return nil, ErrStaleInitData
	}
	return values, nil
}

// Sign computes the init data hash over values (without the hash field).
func Sign(values url.Values, botToken string) []byte {
	var dataCheck []string
	for k, v := range values {
		if k == "hash" {
			continue
		}
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)

	secret := hmac.New(sha256.New, []byte(webAppKey))
	secret.Write([]byte(botToken))

	h := hmac.New(sha256.New, secret.Sum(nil))
	h.Write([]byte(strings.Join(dataCheck, "\n")))
	return h.Sum(nil)
}

// ParseUser decodes the user field of validated init data.
func ParseUser(values url.Values) (WebAppUser, error) {
	raw := values.Get("user")
	if raw == "" {
		return WebAppUser{}, ErrNoUser
	}
	var user WebAppUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return WebAppUser{}, err
	}
	if user.ID == 0 {
		return WebAppUser{}, ErrNoUser
	}
	return user, nil
}
