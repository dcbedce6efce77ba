package auth

import (
	"time"

	"github.com/alphabot-ai/microblog/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid token")

const DefaultTokenTTL = time.Hour

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration, issuer string) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

func (t *Tokens) Issue(id model.Identity) (model.Token, error) {
	if id.UserID == "" {
		return model.Token{}, errors.New("issue token: empty user id")
	}
	now := t.now()
	exp := now.Add(t.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return model.Token{}, errors.Wrap(err, "sign token")
	}
	return model.Token{Value: signed, ExpiresAt: exp.UTC().Truncate(time.Second)}, nil
}

// Verify returns ErrInvalidToken for every rejection, whatever the cause.
func (t *Tokens) Verify(raw string) (model.Identity, error) {
	if raw == "" {
		return model.Identity{}, ErrInvalidToken
	}
	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, opts...)
	if err != nil || c.Subject == "" {
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{UserID: c.Subject, Username: c.Username}, nil
}
