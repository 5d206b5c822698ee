package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"warehouse-backend/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var (
	once        sync.Once
	validate    *validator.Validate
	countryCode = "US"
)

// SetDefaultCountry sets the region used to parse phone numbers without a +country prefix.
func SetDefaultCountry(code string) {
	if code != "" {
		countryCode = strings.ToUpper(code)
	}
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return IsValidPhoneNumber(fl.Field().String())
		})
	})
	return validate
}

// IsValidPhoneNumber: empty is accepted, optional fields use omitempty anyway.
func IsValidPhoneNumber(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return true
	}
	num, err := libphonenumber.Parse(phone, countryCode)
	if err != nil {
		return false
	}
	return libphonenumber.IsValidNumber(num)
}

// Struct validates v and returns an apperr validation error listing field -> failed tag.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, ve := range verrs {
		fields[fieldPath(ve.Namespace())] = ve.Tag()
	}
	return apperr.ValidationFields(fields)
}

// fieldPath drops the top-level struct name: "CreateInput.items[0].quantity" -> "items[0].quantity".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
