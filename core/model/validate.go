package model

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"plan-pricing/internal/errors"
)

// validate is shared by every model. It is configured once at package init
// and is safe for concurrent use afterwards.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their wire name so violations read like the input.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Decimals validate as their exact sign (-1, 0 or 1), so gte=0 and gt=0
	// hold for any magnitude. A float conversion would round tiny negatives
	// to -0.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return int64(d.Sign())
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// checkStruct runs tag validation and converts the first violation into a
// ValidationError. All violations are attached under the "violations" key.
func checkStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.Invariant("struct validation could not run", err)
	}

	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, fieldPath(fe.Namespace())+": "+describeTag(fe))
	}

	first := fieldErrs[0]
	return errors.Validation(fieldPath(first.Namespace()), describeTag(first)).
		WithContext("violations", violations)
}

// fieldPath drops the root type name and embedded Base segments from a
// validator namespace: "Usage.Base.id" becomes "id".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	kept := parts[:0]
	for _, p := range parts {
		if p == "Base" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// prefixField re-roots a validation error under a parent path, e.g. a
// component failure becomes "components[2].amount".
func prefixField(err error, prefix string) error {
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Type != errors.TypeValidation {
		return err
	}
	field := prefix
	if e.Field != "" {
		field = prefix + "." + e.Field
	}
	out := errors.Validation(field, e.Message)
	out.Cause = e.Cause
	for k, v := range e.Context {
		out.WithContext(k, v)
	}
	return out
}
