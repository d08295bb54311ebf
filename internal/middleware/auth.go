package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"orderetl/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingRole  = errors.New("role not found in token")
)

// Identity is what a verified token says about its bearer
type Identity struct {
	Subject string
	Role    string
}

// Auth validates HS256 tokens signed with the configured secret
type Auth struct {
	secret []byte
}

func NewAuth(secret []byte) *Auth {
	return &Auth{secret: secret}
}

// Verify checks the signature and expiry of raw and extracts its role claim
func (a *Auth) Verify(raw string) (Identity, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	role, ok := claims["role"].(string)
	if !ok {
		return Identity{}, ErrMissingRole
	}
	sub, _ := claims.GetSubject()
	return Identity{Subject: sub, Role: role}, nil
}

// VerifyStatus maps a Verify error onto the HTTP status to answer with
func VerifyStatus(err error) int {
	if errors.Is(err, ErrMissingRole) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

// RequireRole Middleware validates the JWT token and checks if the user's role exists in the allowedRoles list
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return
		}

		id, err := a.Verify(parts[1])
		if err != nil {
			code := VerifyStatus(err)
			c.AbortWithStatusJSON(code, response.Error(code, err.Error()))
			return
		}

		if !slices.Contains(allowedRoles, id.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set("userID", id.Subject)
		c.Set("userRole", id.Role)

		c.Next()
	}
}
