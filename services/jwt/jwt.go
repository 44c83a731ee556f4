package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
)

const (
	AccessTokenType    = "access_token"
	RefreshTokenType   = "refresh_token"
	ChallengeTokenType = "two_factor_challenge"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or type checks.
var ErrInvalidToken = errors.New("invalid token")

// GenerateTokenPair issues an access and a refresh token for a user.
func GenerateTokenPair(email, secret string, isAdmin bool, id uint, accessTTL, refreshTTL time.Duration) (string, string, error) {
	if secret == "" {
		return "", "", errors.New("JWT secret key is missing")
	}
	now := time.Now()
	accessToken, err := sign(secret, jwt.MapClaims{
		"id":       id,
		"email":    email,
		"is_admin": isAdmin,
		"type":     AccessTokenType,
		"iat":      now.Unix(),
		"exp":      now.Add(accessTTL).Unix(),
	})
	if err != nil {
		return "", "", errors.Wrap(err, "signing access token")
	}
	refreshToken, err := sign(secret, jwt.MapClaims{
		"id":   id,
		"type": RefreshTokenType,
		"iat":  now.Unix(),
		"exp":  now.Add(refreshTTL).Unix(),
	})
	if err != nil {
		return "", "", errors.Wrap(err, "signing refresh token")
	}
	return accessToken, refreshToken, nil
}

// GenerateChallengeToken issues the short-lived token that ties a password
// login to its second factor.
func GenerateChallengeToken(id uint, method, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT secret key is missing")
	}
	now := time.Now()
	return sign(secret, jwt.MapClaims{
		"id":     id,
		"method": method,
		"type":   ChallengeTokenType,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	})
}

func sign(secret string, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAndGetClaims verifies an HS256 token and returns its claims.
func ValidateAndGetClaims(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateTyped validates tokenString and checks its "type" claim, returning
// the user id it was issued for.
func ValidateTyped(tokenString, secret, tokenType string) (uint, jwt.MapClaims, error) {
	claims, err := ValidateAndGetClaims(tokenString, secret)
	if err != nil {
		return 0, nil, err
	}
	if t, _ := claims["type"].(string); t != tokenType {
		return 0, nil, errors.Wrapf(ErrInvalidToken, "expected %s", tokenType)
	}
	id, err := UserID(claims)
	if err != nil {
		return 0, nil, err
	}
	return id, claims, nil
}

// UserID extracts the numeric "id" claim.
func UserID(claims jwt.MapClaims) (uint, error) {
	switch v := claims["id"].(type) {
	case float64:
		if v <= 0 {
			return 0, ErrInvalidToken
		}
		return uint(v), nil
	default:
		return 0, errors.Wrap(ErrInvalidToken, "invalid userID format")
	}
}
