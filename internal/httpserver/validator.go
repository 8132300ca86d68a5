package httpserver

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/user_management/internal/service"
)

// RequestValidator plugs go-playground/validator into echo.Context.Validate.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (rv *RequestValidator) Validate(i any) error {
	if err := rv.v.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return nil
}

// bindAndValidate decodes the body into req and validates it.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: malformed body", service.ErrValidation)
	}
	return c.Validate(req)
}
