package security

import (
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret creates a TOTP key for accountName and returns its secret and provisioning URL.
func GenerateTOTPSecret(issuer, accountName string) (string, string, error) {
	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if errGenerate != nil {
		return "", "", fmt.Errorf("security: generate totp: %w", errGenerate)
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP reports whether code is valid for secret at now.
func ValidateTOTP(secret, code string, now time.Time) bool {
	if secret == "" || code == "" {
		return false
	}
	ok, errValidate := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	return errValidate == nil && ok
}
