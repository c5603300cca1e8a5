// Package auth issues and verifies access tokens. Sign-in is by
// emailed one-time code: the code is stored bcrypt-hashed, and a
// successful exchange yields a signed JWT session token.
package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer = "keepsake"
	// KeyID is the version tag of the signing key.
	KeyID = "v1"
	// AccessTokenDuration is the lifetime of a session token.
	AccessTokenDuration = 30 * 24 * time.Hour
	// LoginCodeDuration is how long a one-time code stays valid.
	LoginCodeDuration = 10 * time.Minute
)

// ClaimsMessage is the JWT payload of a session token.
type ClaimsMessage struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a session token for the given user.
func GenerateAccessToken(userID int32, email string, expirationTime time.Time, secret []byte) (string, error) {
	registeredClaims := jwt.RegisteredClaims{
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Subject:  strconv.Itoa(int(userID)),
	}
	if !expirationTime.IsZero() {
		registeredClaims.ExpiresAt = jwt.NewNumericDate(expirationTime)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		Email:            email,
		RegisteredClaims: registeredClaims,
	})
	token.Header["kid"] = KeyID

	accessToken, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return accessToken, nil
}

// VerifyAccessToken parses and validates a session token and returns
// the user id it was issued to.
func VerifyAccessToken(accessToken string, secret []byte) (int32, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Name {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
			return nil, errors.Errorf("unexpected key id: %v", t.Header["kid"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return 0, errors.Wrap(err, "invalid access token")
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, errors.Wrap(err, "invalid access token subject")
	}
	return int32(userID), nil
}

// GenerateLoginCode returns a random six digit one-time code and its
// bcrypt hash for storage.
func GenerateLoginCode() (code string, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", errors.Wrap(err, "failed to generate login code")
	}
	code = fmt.Sprintf("%06d", n.Int64())
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to hash login code")
	}
	return code, string(hashed), nil
}

// VerifyLoginCode checks a submitted code against the stored hash.
func VerifyLoginCode(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
