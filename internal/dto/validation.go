package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/buda-loco/splitwiser-sub000/internal/core/domain"
)

// RegisterCustomValidations installs the domain enum validations used by the
// binding tags in this package.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("splittype", validSplitType); err != nil {
		return err
	}
	return v.RegisterValidation("settlementtype", validSettlementType)
}

func validSplitType(fl validator.FieldLevel) bool {
	switch domain.SplitType(fl.Field().String()) {
	case domain.SplitEqual, domain.SplitPercentage, domain.SplitShares:
		return true
	}
	return false
}

func validSettlementType(fl validator.FieldLevel) bool {
	switch domain.SettlementType(fl.Field().String()) {
	case domain.SettlementGlobal, domain.SettlementTagSpecific, domain.SettlementPartial:
		return true
	}
	return false
}
