// Package auth issues and verifies the credential carried in the token cookie.
package auth

import (
	"context"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/mmuslimabdulj/pairchat/internal/domain"
)

// Claims is the token payload. userId and username mirror the identity
// attached to a relay connection.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwtlib.RegisteredClaims
}

// JWT signs and verifies HS256 tokens with a shared secret
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWT creates a JWT codec. A zero ttl issues tokens without expiry.
func NewJWT(secret string, ttl time.Duration) *JWT {
	return &JWT{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the identity
func (j *JWT) Issue(id domain.Identity) (string, error) {
	now := j.now()
	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt: jwtlib.NewNumericDate(now),
		},
	}
	if j.ttl > 0 {
		claims.ExpiresAt = jwtlib.NewNumericDate(now.Add(j.ttl))
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify parses the token and returns its identity. Every failure is
// reported as domain.ErrInvalidToken wrapped with the cause.
func (j *JWT) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, err
	}

	var claims Claims
	parsed, err := jwtlib.ParseWithClaims(token, &claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return j.secret, nil
	}, jwtlib.WithTimeFunc(j.now))
	if err != nil {
		return domain.Identity{}, errors.Wrap(domain.ErrInvalidToken, err.Error())
	}
	if !parsed.Valid || claims.UserID == "" {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	return domain.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
