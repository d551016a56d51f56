package security

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorContextKey = "actorID"

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// JWTMiddleware validates the bearer token and stores the subject claim as
// the actor id. The ledger only ever sees that id as an opaque string
// stamped into created_by; authentication itself lives outside this
// service.
func JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return jwtSecret(), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims := token.Claims.(jwt.MapClaims)
		subject, _ := claims["sub"].(string)
		if subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has no subject"})
			c.Abort()
			return
		}

		c.Set(actorContextKey, subject)
		c.Next()
	}
}

// ActorID returns the actor stamped by JWTMiddleware.
func ActorID(c *gin.Context) string {
	actor, _ := c.Get(actorContextKey)
	id, _ := actor.(string)
	return id
}
