package handler

import (
	"errors"

	"cinema_booking/constants"
	"cinema_booking/seatstore"
	"cinema_booking/utils"

	"github.com/gofiber/fiber/v2"
)

// GetShowtimeSeats trả sơ đồ ghế hiện tại của suất chiếu. Snapshot tự dọn
// hold hết hạn trước khi đọc nên client không bao giờ thấy ghế kẹt ảo.
func GetShowtimeSeats(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ERROR_INPUT)
	}

	snap, err := seatStore.Snapshot(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, seatstore.ErrShowtimeNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.SHOWTIME_NOT_FOUND)
		}
		if errors.Is(err, seatstore.ErrUnavailable) {
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, constants.ERROR_INTERNAL_ERROR)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, constants.ERROR_INTERNAL_ERROR)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, snap)
}
