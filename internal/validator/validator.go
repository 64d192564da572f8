// internal/validator/validator.go
package validator

import (
	"regexp"
	"time"

	"offer-tracker/internal/dates"
	"offer-tracker/internal/domain"

	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

var nonSpace = regexp.MustCompile(`\S`)

func init() {
	Validate = validator.New()

	// calendar day "2025-03-31"
	_ = Validate.RegisterValidation("calendarday", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dates.DayLayout, fl.Field().String())
		return err == nil
	})

	// not empty and not only whitespace
	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonSpace.MatchString(fl.Field().String())
	})

	_ = Validate.RegisterValidation("issuer", func(fl validator.FieldLevel) bool {
		return domain.ValidIssuer(fl.Field().String())
	})

	_ = Validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return domain.ValidCategory(fl.Field().String())
	})

	_ = Validate.RegisterValidation("rewardtype", func(fl validator.FieldLevel) bool {
		return domain.ValidRewardType(fl.Field().String())
	})
}
