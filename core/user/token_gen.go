package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/darpanintel/darpan/core"
)

// Password reset tokens look like "<expiry>.<signature>".
// The expiry is a base36 unix timestamp. The signature covers the user's ID, email,
// password hash and last login, so a token dies once the password changes or the user logs in.

var (
	tokenSalt = []byte("darpan/user/password-reset")
	NowFunc   = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakeToken generates a password reset token for usr, valid for Config.PasswordResetTimeoutDelta.
func MakeToken(usr User) (string, error) {
	expiry := NowFunc().Add(core.Conf.PasswordResetTimeoutDelta).Unix()
	sig, err := signToken(usr, expiry)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(expiry, 36) + "." + sig, nil
}

func verifyToken(usr User, token string) error {
	rawExpiry, sig, ok := strings.Cut(token, ".")
	if !ok || rawExpiry == "" || sig == "" {
		return errInvalidToken
	}
	expiry, err := strconv.ParseInt(rawExpiry, 36, 64)
	if err != nil {
		return errInvalidToken
	}

	wantSig, err := signToken(usr, expiry)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(wantSig), []byte(sig)) {
		return errInvalidToken
	}

	if NowFunc().Unix() > expiry {
		return errTokenExpired
	}
	return nil
}

func signToken(usr User, expiry int64) (string, error) {
	key := sha256.Sum256(append(append([]byte{}, tokenSalt...), core.Conf.SecretKey...))
	mac := hmac.New(sha256.New, key[:])

	var lastLogin string
	if !usr.LastLogin.IsZero() {
		lastLogin = usr.LastLogin.UTC().Format(time.RFC3339Nano)
	}
	parts := [][]byte{
		[]byte(usr.ID),
		[]byte(usr.Email),
		usr.PasswordHash,
		[]byte(lastLogin),
		[]byte(strconv.FormatInt(expiry, 10)),
	}
	for _, part := range parts {
		// NUL separated
		if _, err := mac.Write(part); err != nil {
			return "", err
		}
		if _, err := mac.Write([]byte{0}); err != nil {
			return "", err
		}
	}
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}
