package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInactive = errors.New("session expired by inactivity")

type Claims struct {
	Email        string `json:"email"`
	Admin        bool   `json:"admin"`
	LastActivity int64  `json:"lastActivity"` // unix seconds of the last authenticated request
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret     []byte
	Issuer     string
	TTL        time.Duration
	Inactivity time.Duration
}

func (j *JWTer) Issue(email string, admin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:        email,
		Admin:        admin,
		LastActivity: now.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second))

	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// Refresh enforces the sliding inactivity window and re-issues the token with
// a fresh LastActivity, mirroring how the session stays alive only while the
// caller keeps making requests.
func (j *JWTer) Refresh(c *Claims) (string, error) {
	last := time.Unix(c.LastActivity, 0)
	if c.LastActivity == 0 {
		last = c.IssuedAt.Time
	}
	if time.Since(last) > j.Inactivity {
		return "", ErrInactive
	}
	return j.Issue(c.Email, c.Admin)
}
