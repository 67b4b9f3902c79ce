package client

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator that reports JSON field names and knows
// the cross-field rules of the signup payload
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		req := sl.Current().Interface().(RegisterRequest)
		if req.Role == "admin" && req.OrganizationID == 0 && req.OrganizationName == "" {
			sl.ReportError(req.OrganizationName, "organization_name", "OrganizationName", "required_for_admin", "")
		}
		if req.Role == "volunteer" && req.DateOfBirth == "" {
			sl.ReportError(req.DateOfBirth, "date_of_birth", "DateOfBirth", "required_for_volunteer", "")
		}
	}, RegisterRequest{})

	return v
}

// checkRequest validates an outgoing payload before anything is sent
func (c *Client) checkRequest(req any) error {
	if err := c.validate.Struct(req); err != nil {
		return &APIError{
			Kind:    KindValidation,
			Message: validationMessage(err),
			Err:     err,
		}
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), describeTag(fe)))
	}
	return strings.Join(msgs, "; ")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_for_admin":
		return "is required for admin registration"
	case "required_for_volunteer":
		return "is required for volunteer registration"
	case "email":
		return "must be a valid email address"
	case "eqfield":
		return "does not match"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "url":
		return "must be a valid URL"
	case "gt", "gte", "lt":
		return "is out of range"
	default:
		return "is invalid"
	}
}
