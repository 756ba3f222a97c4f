package ratings

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ErrMalformed marks a viewing that cannot take part in aggregation.
var ErrMalformed = errors.New("malformed viewing")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Ids made only of whitespace are as missing as empty ones.
		validate.RegisterValidation("notblank", validators.NotBlank)
	})
	return validate
}

// Validate checks the identifiers, kind, episode numbers and rating bounds of
// v. The returned error wraps ErrMalformed.
func Validate(v Viewing) error {
	if v.LoadErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, v.LoadErr)
	}

	// NaN passes the gte/lte tags, so finiteness is checked first.
	for d, value := range v.Ratings {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: rating %q is not a number", ErrMalformed, string(d))
		}
	}

	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s %q is not one of [%s]", field, fmt.Sprint(fe.Value()), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be at most %s, got %v", field, fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
