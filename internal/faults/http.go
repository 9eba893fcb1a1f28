package faults

import "github.com/gofiber/fiber/v2"

// HTTPStatus maps a taxonomy kind to the status code returned at the API
// boundary. Provider kinds map to 500: they should normally never surface
// through a synchronous handler (they reach clients via job state instead),
// so seeing one here means a wiring bug, not a client fault.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
