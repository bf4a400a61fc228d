package helper

import (
	"errors"
	"fmt"

	"cinema_booking/config"
	"cinema_booking/model"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Secret đọc lúc dùng chứ không gán lúc init, vì .env chỉ được nạp khi
// config.Config chạy lần đầu. Việc phát hành token thuộc dịch vụ auth
// bên ngoài, ở đây chỉ xác thực.
func jwtSecret() []byte {
	return []byte(config.Config("JWT_SECRET"))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

func ParseToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Xác thực thuật toán ký là HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
}

// ClaimsFrom đọc TokenClaim từ token đã parse xong
func ClaimsFrom(token *jwt.Token) (*model.TokenClaim, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims không đúng định dạng")
	}
	userId, ok := claims["userId"].(float64)
	if !ok {
		return nil, errors.New("token thiếu userId")
	}
	claim := &model.TokenClaim{UserId: uint(userId)}
	if v, ok := claims["username"].(string); ok {
		claim.Username = v
	}
	if v, ok := claims["role"].(string); ok {
		claim.Role = v
	}
	return claim, nil
}

// Principal lấy claims do middleware Protected gắn vào request
func Principal(c *fiber.Ctx) (*model.TokenClaim, bool) {
	claim, ok := c.Locals("claims").(*model.TokenClaim)
	return claim, ok && claim != nil
}
