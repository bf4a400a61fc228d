package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct kiểm tra struct theo tag validate, trả về danh sách vi phạm
// từng trường cho envelope lỗi; nil nếu hợp lệ.
func ValidateStruct(s any) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	violations := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, fmt.Sprintf("%s không hợp lệ (%s)", fe.Field(), fe.Tag()))
	}
	return violations
}
