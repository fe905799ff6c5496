package tests

import (
	"bytes"
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"

	"github.com/darpanintel/darpan/apps/api/echo"
	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/user"
	"github.com/darpanintel/darpan/services/email"
	"github.com/darpanintel/darpan/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Asha Rai", "asharai", "asha@test.np", "LolC@t123", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndoggy", "ndog@test.np", "LolC@t123", []string{user.RoleStudent}, false)

	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echoapi.LoginRequest{Username: "this field is required", Password: "this field is required"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "LolC@t123"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest, wantData: authFailed,
			body: marchallObj(t, echoapi.LoginRequest{Username: "asharai", Password: "lol"}),
		},
		{
			name: "inactive user", wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
			body: marchallObj(t, echoapi.LoginRequest{Username: "ndoggy", Password: "LolC@t123"}),
		},
		{name: "login by username", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: "AshaRai ", Password: "LolC@t123"})},
		{name: "login by email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.LoginRequest{Username: "asha@test.np", Password: "LolC@t123"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantCode, rec.Code)
				var resp echoapi.LoginResponse
				unmarchall(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				if assert.NotNil(t, resp.User) {
					assert.Equal(t, "asharai", resp.User.Username)
					assert.False(t, resp.User.LastLogin.IsZero(), "last login not set")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "Asha Rai", "asharai", "asha@test.np", "", []string{user.RoleStudent}, true)

	type regErr struct {
		Name            string `json:"name,omitempty"`
		Email           string `json:"email,omitempty"`
		Password        string `json:"password,omitempty"`
		PasswordConfirm string `json:"password_confirm,omitempty"`
	}
	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, regErr{Name: reqMsg, Email: reqMsg, Password: "password must contain at least 8 characters", PasswordConfirm: reqMsg}),
		},
		{
			name: "email taken", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.Registration{Name: "Other", Email: "ASHA@test.np", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, regErr{Email: user.ErrEmailExists.Error()}),
		},
		{
			name: "passwords mismatch", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.Registration{Name: "Bikash", Email: "bikash@test.np", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, regErr{PasswordConfirm: "password_confirm must be equal to Password"}),
		},
		{
			name: "registered", wantCode: http.StatusCreated,
			body: marchallObj(t, user.Registration{Name: "Bikash", Email: "Bikash@test.np", Country: "Nepal", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, tt.wantCode, rec.Code)
				var resp echoapi.LoginResponse
				unmarchall(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
				if assert.NotNil(t, resp.User) {
					assert.Equal(t, "bikash@test.np", resp.User.Email)
					assert.Equal(t, []string{user.RoleStudent}, resp.User.Roles)
					assert.True(t, resp.User.IsActive)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Asha Rai", "asharai", "asha@test.np", "", []string{user.RoleStudent}, true)
	ghost := user.User{ID: "e4b3f7b4-0000-4000-8000-000000000000", Username: "ghost", Roles: []string{user.RoleStudent}}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Deleted user", token: getToken(t, ghost), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})},
		{name: "Current user", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, student)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/user"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_updateMe(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Asha Rai", "asharai", "asha@test.np", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	bPtr := func(b bool) *bool { return &b }

	tests := []httpTest{
		{name: "cannot change roles", body: marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "cannot change is_active", body: marchallObj(t, user.UpdateUser{IsActive: bPtr(false)}), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "cannot change email", body: marchallObj(t, user.UpdateUser{Email: "new@test.np"}), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "profile updated", body: marchallObj(t, user.UpdateUser{Name: "Asha R.", Country: "Australia"}), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = "/api/user"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantCode, rec.Code)
				var usr user.User
				unmarchall(t, rec, &usr)
				assert.Equal(t, "Asha R.", usr.Name)
				assert.Equal(t, "Australia", usr.Country)
				assert.Equal(t, student.Email, usr.Email)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	path := func(search string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/api/admin/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	usr1 := testutil.CreateUser(t, usrRepo, "User", "useruser", "awe@test.np", "", nil, true, now.Add(1*time.Hour))
	student := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.np", "", []string{user.RoleStudent}, true, now.Add(2*time.Hour))
	admin := testutil.CreateUser(t, usrRepo, "Admin", "adminuser", "admin@test.np", "", []string{user.RoleAdmin}, true, now.Add(3*time.Hour))
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owneruser", "owner@test.np", "", []string{user.RoleAdminOwner}, true, now.Add(4*time.Hour))
	counsellor := testutil.CreateUser(t, usrRepo, "Counsellor", "counsellor", "coun@test.np", "", []string{user.RoleCounsellor}, true, now.Add(5*time.Hour))
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndoggy", "ndog@test.np", "", []string{user.RoleStudent}, false, now.Add(6*time.Hour)) // 😂

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "Auth required", path: "/api/admin/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Staff required", path: "/api/admin/users", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "Admin required", path: "/api/admin/users", token: getToken(t, counsellor), wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "Get all", path: "/api/admin/users", token: adminToken,
			wantData: marchallList(t, naughty, counsellor, owner, admin, student, usr1),
		},
		{name: "search (unknown)", path: path("lol", nil), token: adminToken, wantData: empty},
		{name: "search=USE", path: path("USE", nil), token: adminToken, wantData: marchallList(t, student, usr1, admin, owner)},
		{name: "role (unknown)", path: path("", nil, "lol"), token: adminToken, wantData: empty},
		{name: "role=admin:", path: path("", nil, user.RoleAdmin), token: adminToken, wantData: marchallList(t, owner, admin)},
		{
			name: "role=counsellor:,student:", path: path("", nil, user.RoleCounsellor, user.RoleStudent),
			token: adminToken, wantData: marchallList(t, naughty, counsellor, student),
		},
		{name: "is_active=false", path: path("", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{
			name: "order by -created_at", path: "/api/admin/users?ordering=-created_at", token: adminToken,
			wantData: marchallList(t, naughty, counsellor, owner, admin, student, usr1),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userCreate(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "adminuser", "admin@test.np", "", []string{user.RoleAdmin}, true)
	token := getToken(t, admin)

	type createErr struct {
		Roles string `json:"roles"`
	}
	tests := []httpTest{
		{
			name: "cannot grant a higher role", wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{
				Name: "Boss", Username: "bossboss", Password: "LolC@t123", PasswordConfirm: "LolC@t123",
				Roles: []string{user.RoleAdminOwner},
			}),
			wantData: marchallObj(t, createErr{Roles: "not enough rights to set these roles"}),
		},
		{
			name: "counsellor created", wantCode: http.StatusCreated,
			body: marchallObj(t, user.NewUser{
				Name: "Counsellor", Email: "coun@test.np", Password: "LolC@t123", PasswordConfirm: "LolC@t123",
				Roles: []string{user.RoleCounsellor},
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/admin/users"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				assert.Equal(t, tt.wantCode, rec.Code)
				var usr user.User
				unmarchall(t, rec, &usr)
				assert.NotEmpty(t, usr.ID)
				assert.True(t, usr.IsCounsellor())
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userDestroy(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "adminuser", "admin@test.np", "", []string{user.RoleAdmin}, true)
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owneruser", "owner@test.np", "", []string{user.RoleAdminOwner}, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.np", "", []string{user.RoleStudent}, true)
	token := getToken(t, admin)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "unknown user", path: "/api/admin/users/lol", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "cannot delete self", path: "/api/admin/users/" + admin.ID, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "cannot delete higher role", path: "/api/admin/users/" + owner.ID, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "student deleted", path: "/api/admin/users/" + student.ID, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				assert.Equal(t, tt.wantCode, rec.Code)
				_, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
				assert.Equal(t, user.ErrNotFound, err)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRefreshToken(t *testing.T) {
	app := setup(t)

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndoggy", "ndog@test.np", "", []string{user.RoleStudent}, false) // 😂
	student := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.np", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   student.ID,
			Audience:  "Darpan",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    student.IsStudent(),
		IsCounsellor: student.IsCounsellor(),
		IsAdmin:      student.IsAdmin(),
		Roles:        student.Roles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				unmarchall(t, rec, &respData)
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userResetPassword(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.np", "", []string{user.RoleStudent}, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	pathRegex := regexp.MustCompile("/password-reset/.+/.+")

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "know email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: student.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: student.Name, Address: student.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				sent := emailsvc.SentMessages()
				if extra.emailSent {
					if len(sent) != 1 {
						t.Fatalf("failed! len(SentMessages) = %d; want 1", len(sent))
					}
					msg := sent[0]
					if msg.To[0] != extra.to {
						t.Errorf("failed! To = %v; want %v", msg.To[0], extra.to)
					}
					if !strings.Contains(msg.TextContent, extra.to.Name) {
						t.Errorf("failed! text content does not contain recipient's name \"%s\"", extra.to.Name)
					}
					if !pathRegex.MatchString(msg.TextContent) {
						t.Errorf("failed! text content does not match pathRegex %v", pathRegex)
					}
					if !pathRegex.MatchString(msg.HTMLContent) {
						t.Errorf("failed! HTML content does not match pathRegex %v", pathRegex)
					}
				} else if len(sent) > 0 {
					t.Errorf("failed! len(SentMessages) = %d; want 0", len(sent))
				}
			}
		})
	}
}

func Test_userApi_userConfirmPasswordReset(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "herohero", "user3@test.np", "lol", []string{user.RoleStudent}, true)
	validUID := user.EncodeUID(student)
	validToken, err := user.MakeToken(student)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	// generate an expired token
	dayLate := core.Conf.PasswordResetTimeoutDelta + (24 * time.Hour)
	user.NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := user.MakeToken(student)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}
	user.NowFunc = time.Now // reset

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: "password must contain at least 8 characters", PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "l o loll", PasswordConfirm: "l o loll"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: too common", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "P@$$w0rd", PasswordConfirm: "P@$$w0rd"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password is too common"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid token"}),
		},
		{
			name: "expired token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: expiredToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "token expired"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/auth/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshedStudent, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: student.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedStudent.PasswordHash, student.PasswordHash) {
					t.Fatalf("failed to update new password")
				}
			}
		})
	}
}
