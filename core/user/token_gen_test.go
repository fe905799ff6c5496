package user

import (
	"strings"
	"testing"
	"time"

	"github.com/darpanintel/darpan/core"
)

func TestMakeVerifyToken(t *testing.T) {
	now := time.Now()
	usr := User{
		ID:        "8d1d7a4e-5f7e-4a53-9a55-1d2c0e6f7b10",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := core.Conf.PasswordResetTimeoutDelta + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := MakeToken(usr)
	NowFunc = time.Now // reset
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	// a token made before the password changed is no longer valid
	changedUsr := usr
	_ = changedUsr.SetPassword("new-pwd")

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "no separator", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "no signature", usr: usr, token: "sa0ab3.", wantErr: errInvalidToken},
		{name: "invalid expiry", usr: usr, token: "ha-ha.sigsig", wantErr: errInvalidToken},
		{name: "invalid signature", usr: usr, token: "zzzzzz.sigsig", wantErr: errInvalidToken},
		{name: "forged expiry", usr: usr, token: "zzzzzz." + validToken[strings.Index(validToken, ".")+1:], wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "password changed", usr: changedUsr, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "8d1d7a4e-5f7e-4a53-9a55-1d2c0e6f7b10"}
	id, err := decodeUID(EncodeUID(usr))
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if id != usr.ID {
		t.Errorf("decodeUID() = %v, want %v", id, usr.ID)
	}
}
