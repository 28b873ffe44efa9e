package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const revokedSubjectKey = "identity:revoked:%s"

type Claims struct {
	jwt.RegisteredClaims
	Nickname string `json:"nickname,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

type JWTVerifier struct {
	rdb       redis.Cmdable
	key       any
	method    string
	issuer    string
	audience  string
	revokeTTL time.Duration
}

var _ Verifier = (*JWTVerifier)(nil)

// NewJWTVerifier algorithm 为 HS256 时 key 是共享密钥, 为 RS256 时 key 是 PEM 公钥
func NewJWTVerifier(rdb redis.Cmdable, algorithm, key, issuer, audience string, revokeTTL time.Duration) (*JWTVerifier, error) {
	v := &JWTVerifier{
		rdb:       rdb,
		method:    algorithm,
		issuer:    issuer,
		audience:  audience,
		revokeTTL: revokeTTL,
	}
	switch algorithm {
	case jwt.SigningMethodHS256.Alg():
		v.key = []byte(key)
	case jwt.SigningMethodRS256.Alg():
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(key))
		if err != nil {
			return nil, fmt.Errorf("NewJWTVerifier failed at parse public key: %w", err)
		}
		v.key = pub
	default:
		return nil, fmt.Errorf("NewJWTVerifier failed: unsupported algorithm %q", algorithm)
	}
	return v, nil
}

func (v *JWTVerifier) VerifyBearer(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if after, ok := strings.CutPrefix(token, "Bearer "); ok {
		token = strings.TrimSpace(after)
	}
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims, err := v.parse(token)
	if err != nil {
		return nil, err
	}
	if err = v.checkRevoked(ctx, claims.Subject); err != nil {
		return nil, err
	}
	return toIdentity(claims), nil
}

func (v *JWTVerifier) DecodeAssertion(ctx context.Context, assertion string) (*Identity, error) {
	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return nil, ErrInvalidToken
	}
	if strings.Count(assertion, ".") != 2 {
		if err := v.checkRevoked(ctx, assertion); err != nil {
			return nil, err
		}
		return &Identity{Subject: assertion}, nil
	}
	return v.VerifyBearer(ctx, assertion)
}

func (v *JWTVerifier) Revoke(ctx context.Context, subject string) error {
	return v.rdb.Set(ctx, fmt.Sprintf(revokedSubjectKey, subject), time.Now().Unix(), v.revokeTTL).Err()
}

func (v *JWTVerifier) parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{v.method}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	t, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if t == nil || !t.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (v *JWTVerifier) checkRevoked(ctx context.Context, subject string) error {
	cnt, err := v.rdb.Exists(ctx, fmt.Sprintf(revokedSubjectKey, subject)).Result()
	if err != nil {
		return fmt.Errorf("checkRevoked failed: %w", err)
	}
	if cnt > 0 {
		return ErrRevoked
	}
	return nil
}

func toIdentity(c *Claims) *Identity {
	nickname := c.Nickname
	if nickname == "" {
		nickname = c.Name
	}
	return &Identity{
		Subject:  c.Subject,
		Nickname: nickname,
		Picture:  c.Picture,
	}
}
