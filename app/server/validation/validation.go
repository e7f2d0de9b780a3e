package validation

import (
	"github.com/go-playground/validator/v10"
)

// Validator 挂载到 echo 上的请求体校验器
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}
