package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/user"
)

const (
	tokenAudience  = "Darpan"
	contextUserKey = "user"
)

// appJWTConfig is the JWT auth middleware config shared by every protected route.
var appJWTConfig = middleware.JWTConfig{
	SigningKey:    []byte(core.Conf.SecretKey),
	SigningMethod: middleware.AlgorithmHS256,
	ContextKey:    "userToken",
	Claims:        new(Claims),
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"` // first login; refreshes keep it
	Name         string   `json:"name,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"`
	IsCounsellor bool     `json:"is_counsellor,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"` // admin dashboard
	Roles        []string `json:"roles,omitempty"`
}

// Valid also rejects tokens issued for another audience or without a subject.
func (c *Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.Subject == "" {
		return errors.New("token has no subject")
	}
	if !c.VerifyAudience(tokenAudience, true) {
		return errors.New("token audience mismatch")
	}
	return nil
}

// HasAnyRole is true when roles is empty or one of them was granted.
func (c Claims) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		for _, has := range c.Roles {
			if role == has {
				return true
			}
		}
	}
	return false
}

// RefreshDeadline is the time after which the token may no longer be refreshed.
func (c Claims) RefreshDeadline() time.Time {
	return time.Unix(c.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
}

// GetUserClaims returns fresh claims for usr. origIat carries the first login over refreshes.
func GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsStudent:    usr.IsStudent(),
		IsCounsellor: usr.IsCounsellor(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(appJWTConfig.SigningMethod), claims)
	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// authenticate checks the credentials, then records the login.
// Unknown users and wrong passwords answer the same error.
func authenticate(ctx context.Context, uname, pwd string, svc user.Service) (user.User, *Claims, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		return user.User{}, nil, errAuthenticationFailed
	case err != nil:
		return user.User{}, nil, errors.Wrap(err, "finding user by username or email")
	case usr.CheckPassword(pwd) != nil:
		return user.User{}, nil, errAuthenticationFailed
	case !usr.IsActive:
		return user.User{}, nil, errAccountDeactivated
	}

	if usr, err = svc.SetLastLogin(ctx, usr); err != nil {
		return user.User{}, nil, errors.Wrap(err, "setting lastLogin")
	}
	return usr, GetUserClaims(usr), nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads the authenticated User once per request.
func getContextUser(ctx echo.Context, svc user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			// deleted after the token was issued
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	claims, err := getContextClaims(ctx)
	return err == nil && claims.HasAnyRole(roles...)
}

// refreshToken issues a new token for the current user, up to Claims.RefreshDeadline.
func refreshToken(ctx echo.Context, svc user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	usr, err := getContextUser(ctx, svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	if !usr.IsActive {
		return "", errAccountDeactivated
	}
	if time.Now().After(claims.RefreshDeadline()) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(GetUserClaims(usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
