package mfa

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpPeriod = 30

// Enrollment is the material handed back when a new authenticator
// device is registered: the shared secret plus the otpauth:// URI an
// authenticator app can scan.
type Enrollment struct {
	DeviceID        string
	Secret          string
	ProvisioningURI string
}

// generateTOTPSecret enrolls a fresh shared secret for the account.
func generateTOTPSecret(issuer, accountName string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// validateTOTP checks a code against a secret with one time step of
// tolerance either side, absorbing ~30s of clock skew. Codes two or
// more steps away are rejected.
func validateTOTP(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
