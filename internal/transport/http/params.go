package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "napsidx/internal/errors"
	"napsidx/internal/index"
)

// queryValidator checks decoded query structs. Field names in messages
// follow the query tags.
var queryValidator = newQueryValidator()

func newQueryValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("query")
	})
	return v
}

// validateQuery runs struct tags and returns the first violation as a
// VALIDATION_FAILED APIError.
func validateQuery(q any) error {
	err := queryValidator.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apierrors.ErrValidation(fe.Field(), validationMessage(fe))
	}
	return apierrors.ErrInvalidRequest
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}

// intParam reads an optional integer query parameter; absent yields 0.
func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.ErrValidation(name, "must be an integer")
	}
	return v, nil
}

// intListParam reads a repeatable integer parameter. Comma separated
// values are accepted too.
func intListParam(r *http.Request, name string) ([]int, error) {
	var out []int
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.Atoi(part)
			if err != nil {
				return nil, apierrors.ErrValidation(name, "must be a list of integers")
			}
			out = append(out, v)
		}
	}
	return out, nil
}

func analyteTypeParam(r *http.Request) index.AnalyteType {
	return index.AnalyteType(strings.TrimSpace(r.URL.Query().Get("analyte_type")))
}

func instrumentParam(r *http.Request) index.Instrument {
	return index.Instrument(strings.TrimSpace(r.URL.Query().Get("instrument")))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
