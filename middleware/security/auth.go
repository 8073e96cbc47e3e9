package security

import (
	"net/http"
	"strings"

	"LinkChat/tools/errs"
	jwtlib "LinkChat/tools/security"

	"github.com/gin-gonic/gin"
)

// CtxUserIDKey is where downstream handlers read the authenticated user id.
const CtxUserIDKey = "userID"

type Options struct {
	Jwt                       jwtlib.Options
	HeaderToken               string // default "token"
	EnableAuthorizationBearer bool
}

func DefaultOptions(jwt jwtlib.Options) *Options {
	return &Options{
		Jwt:                       jwt,
		HeaderToken:               "token",
		EnableAuthorizationBearer: true,
	}
}

// Middleware verifies the JWT and stores the subject in the gin context.
// Failures are value-based responses, matching the rest of the API surface.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))

		if token == "" && opts.EnableAuthorizationBearer {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
				if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					token = strings.TrimSpace(authz[len("bearer "):])
				}
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{
				"success": false, "message": errs.ErrUnauthorized.Msg,
			})
			return
		}

		userID, err := jwtlib.Verify(opts.Jwt, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusOK, gin.H{
				"success": false, "message": errs.ErrUnauthorized.Msg,
			})
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated user from the gin context.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}
