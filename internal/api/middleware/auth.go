package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adamscao/certledger/internal/auth"
)

// AdminSession middleware requires a valid admin session cookie
func AdminSession(gate *auth.Gate, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || gate.ValidateSession(token) != nil {
			code, message := "login_required", "Admin login required"
			if c.Query("error") == "1" {
				code, message = "login_failed", "Incorrect password"
			}

			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   code,
				"message": message,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
