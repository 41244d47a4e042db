package handlers

import (
	"fmt"
	"sync"

	"github.com/SscSPs/etat_civil_app/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules used by the request DTOs.
// It is safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		if err = v.RegisterValidation("payment_method", validPaymentMethod); err != nil {
			return
		}
		err = v.RegisterValidation("sex", validSex)
	})
	return err
}

func validPaymentMethod(fl validator.FieldLevel) bool {
	return domain.PaymentMethod(fl.Field().String()).Valid()
}

func validSex(fl validator.FieldLevel) bool {
	switch domain.Sex(fl.Field().String()) {
	case domain.SexMale, domain.SexFemale:
		return true
	}
	return false
}
