package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-auth-proxy/internal/errors"
)

// Claims is the access token payload: sub (client_id), iss (public URL), iat and exp.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec mints and verifies stateless access tokens. Nothing about an access token is stored.
type Codec struct {
	signer  Signer
	issuer  string
	ttl     time.Duration
	nowTime func() time.Time
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithNowTime sets the clock used for iat, exp and expiry checks (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// NewCodec creates an HS256 codec. issuer is stamped on minted tokens and required on verification.
func NewCodec(secret, issuer string, ttl time.Duration, options ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("[NewCodec] signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewCodec] token lifetime must be positive")
	}

	c := &Codec{
		signer:  NewHMACSigner(secret),
		issuer:  issuer,
		ttl:     ttl,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// TTL is the lifetime given to minted tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint issues an access token for subject, valid for the codec's TTL.
func (c *Codec) Mint(subject string) (string, error) {
	now := c.nowTime()
	return c.Sign(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
}

// Sign encodes claims as header.payload.signature with HMAC-SHA256.
func (c *Codec) Sign(claims *Claims) (string, error) {
	return c.signer.Sign(claims)
}

// Verify checks the signature, the algorithm and the expiry of raw and returns its claims.
// A token whose exp is at or before now is rejected. The header's alg is never trusted:
// anything other than HS256 fails before the signature is considered.
func (c *Codec) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowTime),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, c.signer.GetVerificationKey, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidToken, reason(err))
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// reason maps parser failures onto short fixed strings so no token material reaches logs.
func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad signature"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong issuer"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing claim"
	default:
		return "rejected"
	}
}
