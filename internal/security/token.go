package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token audiences.
const (
	// AudienceFront marks tokens issued by the storefront login.
	AudienceFront = "front"
	// AudienceAdmin marks tokens issued by the admin login.
	AudienceAdmin = "admin"
)

// AccessClaims identifies the signed-in account.
type AccessClaims struct {
	AccountID uint64 `json:"aid"`
	Username  string `json:"usr"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for accountID valid for ttl.
func IssueToken(secret string, accountID uint64, username, audience string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("security: empty jwt secret")
	}
	expiresAt := now.Add(ttl)
	claims := AccessClaims{
		AccountID: accountID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(accountID, 10),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if errSign != nil {
		return "", time.Time{}, fmt.Errorf("security: sign jwt: %w", errSign)
	}
	return signed, expiresAt, nil
}

// ParseToken validates tokenStr and requires the given audience.
func ParseToken(secret, tokenStr, audience string) (*AccessClaims, error) {
	token, errParse := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithAudience(audience), jwt.WithExpirationRequired())
	if errParse != nil {
		return nil, fmt.Errorf("security: parse jwt: %w", errParse)
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.AccountID == 0 {
		return nil, errors.New("security: invalid token")
	}
	return claims, nil
}
