package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

// TokenCookie carries the JWT for plain browser form submissions.
const TokenCookie = "token"

type Auth struct {
	keyfunc jwt.Keyfunc
	close   func()
}

// NewAuth fetches the JWKS at url and keeps it refreshed in the background.
func NewAuth(url string, logger zerolog.Logger) (*Auth, error) {
	options := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Error().Err(err).Str("url", url).Msg("jwks refresh failed")
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	jwks, err := keyfunc.Get(url, options)
	if err != nil {
		return nil, err
	}

	return &Auth{keyfunc: jwks.Keyfunc, close: jwks.EndBackground}, nil
}

// NewAuthWithKeyfunc verifies tokens with fn instead of a remote JWKS.
func NewAuthWithKeyfunc(fn jwt.Keyfunc) *Auth {
	return &Auth{keyfunc: fn, close: func() {}}
}

func (auth *Auth) Close() {
	auth.close()
}

func token(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		data := strings.SplitN(header, " ", 2)
		if len(data) != 2 || !strings.EqualFold(data[0], "Bearer") {
			return "", errors.New("invalid authorization http header")
		}
		return data[1], nil
	}

	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	return "", errors.New("missing token")
}

// UserID returns the subject of the request's verified token.
func (auth *Auth) UserID(r *http.Request) (string, error) {
	raw, err := token(r)
	if err != nil {
		return "", err
	}

	t, err := jwt.Parse(raw, auth.keyfunc)
	if err != nil {
		return "", errors.New("failed to parse the JWT")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return "", errors.New("the token is not valid")
	}

	if err := claims.Valid(); err != nil {
		return "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("the token has no subject")
	}

	return sub, nil
}
