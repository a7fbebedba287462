package auth

import (
	"errors"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// tokenIssuer signs and parses HS256 session tokens.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (ti *tokenIssuer) issue(userID, email, name string) (string, *Principal, error) {
	if len(ti.secret) == 0 {
		return "", nil, errors.New("jwt secret is empty")
	}
	now := ti.now()
	p := &Principal{
		UserID:      userID,
		Email:       email,
		DisplayName: name,
		TokenID:     uuid.NewString(),
		ExpiresAt:   now.Add(ti.ttl).Truncate(time.Second),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        p.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	})
	signed, err := tok.SignedString(ti.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, p, nil
}

func (ti *tokenIssuer) parse(tokenStr string) (*Principal, error) {
	if len(ti.secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Subject == "" || c.ID == "" {
		return nil, errors.New("invalid claims")
	}
	return &Principal{
		UserID:      c.Subject,
		Email:       c.Email,
		DisplayName: c.Name,
		TokenID:     c.ID,
		ExpiresAt:   c.ExpiresAt.Time,
	}, nil
}

// revocationList remembers signed-out token ids until they would have expired anyway.
type revocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newRevocationList() *revocationList {
	return &revocationList{revoked: make(map[string]time.Time)}
}

func (r *revocationList) revoke(jti string, until, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
	r.revoked[jti] = until
}

func (r *revocationList) isRevoked(jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[jti]
	return ok
}
