package appointment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darpanintel/darpan/core"
)

var (
	statusTag  = "appointment_status"
	statusText = "invalid appointment status"

	futureTag  = "future"
	futureText = "must be in the future"

	// NowFunc is replaced in tests.
	NowFunc = time.Now
)

func init() {
	_ = core.Validate.RegisterValidation(statusTag, core.OneOfValidation(Statuses...))
	core.RegisterCustomTranslation(statusTag, statusText)

	_ = core.Validate.RegisterValidation(futureTag, futureValidation)
	core.RegisterCustomTranslation(futureTag, futureText)
}

// futureValidation checks that a time.Time field is after now.
func futureValidation(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	return ok && t.After(NowFunc())
}
