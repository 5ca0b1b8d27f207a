package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var (
	TokenAuth *jwtauth.JWTAuth
	tokenTTL  = 72 * time.Hour
)

// InitJWT configures the HS256 signer shared by token issuing and the
// request verifier.
func InitJWT(secret []byte, ttl time.Duration) {
	TokenAuth = jwtauth.New("HS256", secret, nil)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

func GenerateToken(userID, role string) (string, error) {
	if TokenAuth == nil {
		return "", errors.New("jwt signer is not initialised")
	}
	claims := map[string]interface{}{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(tokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// Helper functions to extract claims, can be used in middleware or services
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}
