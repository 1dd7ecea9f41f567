package echostub

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core/auth"
)

const contextTokenKey = "userToken"

func (s *server) userClaims(usr User) *auth.Claims {
	now := time.Now()
	conf := s.opts.Conf
	return &auth.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "Kozi",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username:  usr.Username,
		Email:     usr.Email,
		IsStudent: auth.RoleStartsWith(usr.Roles, auth.RoleStudent),
		IsTutor:   auth.RoleStartsWith(usr.Roles, auth.RoleTutor),
		IsAdmin:   auth.RoleStartsWith(usr.Roles, auth.RoleAdmin),
		Roles:     usr.Roles,
	}
}

func (s *server) authenticate(uname, pwd string) (*auth.Claims, error) {
	usr, ok := s.users.getByUsername(uname)
	if !ok {
		return nil, errAuthenticationFailed
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	return s.userClaims(usr), nil
}

// generateToken signs the claims into a JWT token string.
func (s *server) generateToken(claims *auth.Claims) (string, error) {
	method := jwt.GetSigningMethod(s.jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(s.jwtConf.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (auth.Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*auth.Claims); ok {
			return *claims, nil
		}
	}
	return auth.Claims{}, errUnauthorized
}

// tutorMiddleware gates course-authoring endpoints; admins pass too.
func tutorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsTutor || claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
