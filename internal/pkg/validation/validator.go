package validation

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// registerCustomValidators adds the domain tags uic, dodid and isodate to v
func registerCustomValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"uic": func(fl validator.FieldLevel) bool {
			return IsUIC(fl.Field().String())
		},
		"dodid": func(fl validator.FieldLevel) bool {
			return IsDoDID(fl.Field().String())
		},
		"isodate": func(fl validator.FieldLevel) bool {
			_, err := time.Parse("2006-01-02", fl.Field().String())
			return err == nil
		},
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// New returns a validator with the domain tags registered
func New() *validator.Validate {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterWithGin installs the domain tags on gin's binding validator so that
// `binding:"uic"` works in request structs
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return registerCustomValidators(v)
}
