package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver maps an inbound caller credential to a user id.
type Resolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// CacheResolver looks up sessions written by the identity service as
// token:{token} -> user id.
type CacheResolver struct {
	client redis.UniversalClient
}

func NewCacheResolver(client redis.UniversalClient) *CacheResolver {
	return &CacheResolver{client: client}
}

func (r *CacheResolver) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	userID, err := r.client.Get(ctx, "token:"+token).Result()
	if errors.Is(err, redis.Nil) || (err == nil && userID == "") {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	return userID, nil
}

// JWTResolver accepts HS256 tokens and uses the subject claim as the user id.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", ErrUnauthenticated
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrUnauthenticated
	}
	return sub, nil
}

// StaticResolver serves fixed tokens; used by tests and local runs.
type StaticResolver map[string]string

func (r StaticResolver) Resolve(_ context.Context, token string) (string, error) {
	if userID, ok := r[token]; ok {
		return userID, nil
	}
	return "", ErrUnauthenticated
}
