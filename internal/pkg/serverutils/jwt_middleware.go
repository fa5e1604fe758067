package serverutils

import (
	"strings"

	"genius-be/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	UserIdLocal = "user_id"
	EmailLocal  = "email"
)

// NewJwtMiddleware verifies an HS256 bearer token and stores its user_id
// claim in ctx.Locals. The token may also come from the "token" query
// parameter, which browsers need for websocket upgrades.
func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := ""
		authHeader := ctx.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = authHeader[7:]
		} else {
			tokenStr = ctx.Query("token")
		}
		if tokenStr == "" || secret == "" {
			return WriteError(ctx, dto.NewUnauthorizedError())
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return WriteError(ctx, dto.NewUnauthorizedError())
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return WriteError(ctx, dto.NewUnauthorizedError())
		}

		userId, _ := claims["user_id"].(string)
		if userId == "" {
			return WriteError(ctx, dto.NewUnauthorizedError())
		}

		ctx.Locals(UserIdLocal, userId)
		if email, ok := claims["email"].(string); ok {
			ctx.Locals(EmailLocal, email)
		}
		return ctx.Next()
	}
}

// UserId returns the authenticated caller, or "" outside the middleware.
func UserId(ctx *fiber.Ctx) string {
	userId, _ := ctx.Locals(UserIdLocal).(string)
	return userId
}

// Email returns the caller's email claim when the token carried one.
func Email(ctx *fiber.Ctx) string {
	email, _ := ctx.Locals(EmailLocal).(string)
	return email
}
