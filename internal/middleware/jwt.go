package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"tprmgrc/internal/models/dto"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// ErrNoSecret is returned when JWT_SECRET is unset
var ErrNoSecret = errors.New("JWT_SECRET is not set")

const (
	currentUserKey = "currentUser"
	actorKey       = "actor"
)

// GenerateJWT signs a one hour token for a user
func GenerateJWT(userID, email, role string) (string, error) {
	jwtKey, err := LoadJWTKey()
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"exp":     time.Now().Add(1 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtKey))
}

// VerifyToken parses an HS256 token signed with JWT_SECRET
func VerifyToken(token string) (*jwt.Token, error) {
	jwtKey, err := LoadJWTKey()
	if err != nil {
		return nil, err
	}
	tokenVerify, err := jwt.Parse(token, func(newToken *jwt.Token) (interface{}, error) {
		if _, isValid := newToken.Method.(*jwt.SigningMethodHMAC); !isValid {
			return nil, fmt.Errorf("unexpected signing method: %v", newToken.Header["alg"])
		}
		return []byte(jwtKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return tokenVerify, nil
}

// DecodeTokenJWT returns the claims of a valid token
func DecodeTokenJWT(token string) (jwt.MapClaims, error) {
	tokenVerify, err := VerifyToken(token)
	if err != nil {
		return nil, err
	}

	claims, isOk := tokenVerify.Claims.(jwt.MapClaims)
	if isOk && tokenVerify.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// Auth requires a bearer token and records its user as the request actor
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewAuthErrorResponse(c, "JWT token not provided"))
			return
		}

		parts := strings.Split(token, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewAuthErrorResponse(c, "Invalid Authorization header format"))
			return
		}

		claims, err := DecodeTokenJWT(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewAuthErrorResponse(c, "Invalid token"))
			return
		}

		actor := claimString(claims, "user_id")
		if actor == "" {
			actor = claimString(claims, "sub")
		}
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewAuthErrorResponse(c, "Token has no user"))
			return
		}

		c.Set(currentUserKey, claims)
		c.Set(actorKey, actor)
		c.Next()
	}
}

// Actor is the authenticated user id of the request, empty when anonymous
func Actor(c *gin.Context) string {
	return c.GetString(actorKey)
}

// SetActor marks the request as made by actor
func SetActor(c *gin.Context, actor string) {
	c.Set(actorKey, actor)
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

// LoadJWTKey reads JWT_SECRET
func LoadJWTKey() (string, error) {
	key := os.Getenv("JWT_SECRET")
	if key == "" {
		return "", ErrNoSecret
	}
	return key, nil
}
