package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	secret     []byte
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

// Configure sets the signing secret and token lifetimes
func Configure(signingSecret string, access, refresh time.Duration) {
	secret = []byte(signingSecret)
	if access > 0 {
		accessTTL = access
	}
	if refresh > 0 {
		refreshTTL = refresh
	}
}

func generate(userID, tokenVersion uint64, tokenType string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	claims := jwt.MapClaims{
		"user_id":       userID,
		"token_version": tokenVersion,
		"type":          tokenType,
		"exp":           time.Now().Add(ttl).Unix(),
		"iat":           time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func GenerateAccessToken(userID, tokenVersion uint64) (string, error) {
	return generate(userID, tokenVersion, tokenTypeAccess, accessTTL)
}

func GenerateRefreshToken(userID, tokenVersion uint64) (string, error) {
	return generate(userID, tokenVersion, tokenTypeRefresh, refreshTTL)
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

// GetDataFromToken extracts user id and token version from verified claims
func GetDataFromToken(token *jwt.Token) (uint64, uint64, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, 0, errors.New("invalid claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, 0, errors.New("user_id missing from token")
	}
	version, ok := claims["token_version"].(float64)
	if !ok {
		return 0, 0, errors.New("token_version missing from token")
	}

	return uint64(userID), uint64(version), nil
}

// IsRefreshToken reports whether a verified token was issued for refresh
func IsRefreshToken(token *jwt.Token) bool {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	t, _ := claims["type"].(string)
	return t == tokenTypeRefresh
}
