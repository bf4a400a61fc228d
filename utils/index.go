package utils

import (
	"time"

	"cinema_booking/model"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrorResponse bao lỗi thống nhất cho mọi endpoint. message là chuỗi hoặc
// danh sách vi phạm từng trường từ validator.
func ErrorResponse(c *fiber.Ctx, status int, message any) error {
	return c.Status(status).JSON(fiber.Map{
		"statusCode": status,
		"message":    message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"path":       c.Path(),
	})
}

func SuccessResponse(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

func ApplyPagination(query *gorm.DB, limit, page *int) *gorm.DB {
	// Kiểm tra nếu có limit thì thêm điều kiện Limit
	if limit != nil && *limit > 0 && page != nil && *page >= 1 {
		query = query.Limit(*limit)
		offset := *limit * (*page - 1)
		query = query.Offset(offset)
	}

	return query
}

// ParsePagination đọc limit/page từ query string, thiếu thì trả về nil
func ParsePagination(c *fiber.Ctx) model.Pagination {
	p := model.Pagination{}
	if v := c.QueryInt("limit", 0); v > 0 {
		p.Limit = Ptr(v)
	}
	if v := c.QueryInt("page", 0); v > 0 {
		p.Page = Ptr(v)
	}
	return p
}

func Ptr[T any](v T) *T {
	return &v
}
