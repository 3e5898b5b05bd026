package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/deskcore/backend/domain"
)

// TokenClaims is what the middleware recovers from a verified access token.
type TokenClaims struct {
	UserID int64
	Role   domain.Role
}

// NewTokenIssuer returns a function that signs HS256 access tokens for a
// user. Claims carry the numeric user id and role so the middleware can
// populate identity headers without a database hit.
func NewTokenIssuer(secret string, ttl time.Duration) func(*domain.User) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(user *domain.User) (string, error) {
		if user == nil || user.ID == 0 {
			return "", domain.ErrInvalidPayload
		}
		now := time.Now()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": user.ID,
			"role":    string(user.Role),
			"iat":     now.Unix(),
			"exp":     now.Add(ttl).Unix(),
		})
		return token.SignedString([]byte(secret))
	}
}

// ParseToken verifies a signed token and extracts its claims.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return nil, domain.ErrUnauthorized
	}
	role, _ := claims["role"].(string)

	return &TokenClaims{
		UserID: int64(userID),
		Role:   domain.Role(role),
	}, nil
}
