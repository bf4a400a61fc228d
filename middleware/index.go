package middleware

import (
	"strings"

	"cinema_booking/constants"
	"cinema_booking/helper"
	"cinema_booking/model"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
)

// Protected chặn request không kèm token hợp lệ. Token lấy từ cookie
// access_token hoặc header Authorization: Bearer xxx; claims giải mã xong
// gắn vào Locals("claims") cho handler phía sau dùng.
func Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")

		if token == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Thiếu token đăng nhập")
		}

		jwtToken, err := helper.ParseToken(token)
		if err != nil || !jwtToken.Valid {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Token không hợp lệ hoặc đã hết hạn")
		}
		claim, err := helper.ClaimsFrom(jwtToken)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.ERROR_PARSE_DATA_TO_LOCALS)
		}

		c.Locals("claims", claim)
		return c.Next()
	}
}

// OptionalJWT giải mã token nếu có, không có vẫn cho qua (route công khai
// muốn biết ai đang xem)
func OptionalJWT() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")
		if token == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token == "" {
			return c.Next()
		}

		jwtToken, err := helper.ParseToken(token)
		if err != nil || !jwtToken.Valid {
			return c.Next()
		}
		if claim, err := helper.ClaimsFrom(jwtToken); err == nil {
			c.Locals("claims", claim)
		}
		return c.Next()
	}
}

// Authorize chỉ cho các vai trò liệt kê đi tiếp, luôn đặt sau Protected
func Authorize(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claim, ok := c.Locals("claims").(*model.TokenClaim)
		if !ok || claim == nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Thiếu token đăng nhập")
		}
		for _, role := range roles {
			if claim.Role == role {
				return c.Next()
			}
		}
		return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_ADMIN)
	}
}
