package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AurLemon/course-android-mockapi/internal/model"
)

// MaxAccessTokenLen is the width of session_tokens.access_token. Claims
// are fixed size so every minted token fits.
const MaxAccessTokenLen = 512

// AccessClaims is the payload of an access token. The jti makes every
// minted token unique even for identical principals and timestamps. The
// username stays out of the token; the session row joins it in.
type AccessClaims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim. It is 0 when the subject is missing
// or malformed.
func (c *AccessClaims) UserID() uint64 {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Signer mints HS256 access tokens and random refresh tokens.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer using the given HMAC secret.
func NewSigner(secret string) *Signer {
	if secret == "" {
		panic("auth: empty signing secret")
	}
	return &Signer{secret: []byte(secret)}
}

// MintAccess signs an access token for p valid from issuedAt until
// expiresAt.
func (s *Signer) MintAccess(p model.Principal, issuedAt, expiresAt time.Time) (string, error) {
	claims := AccessClaims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(p.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// MintRefresh returns 48 bytes of crypto/rand data, hex encoded.
func (s *Signer) MintRefresh() (string, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Verify checks the signature and algorithm of an access token. Expiry is
// not checked here; the session row is authoritative for that.
func (s *Signer) Verify(token string) (*AccessClaims, error) {
	claims := new(AccessClaims)
	tok, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}
