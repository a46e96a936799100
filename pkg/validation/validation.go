package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "hotelbook/pkg/errors"
	"hotelbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

const TagRoomType = "room_type"

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into the field -> message map used in error responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

// New returns a validator that reports JSON field names and knows the domain tags.
func New() (*validator.Validate, error) {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation(TagRoomType, validateRoomType); err != nil {
		return nil, fmt.Errorf("failed to register %q validator: %w", TagRoomType, err)
	}
	return v, nil
}

func validateRoomType(fl validator.FieldLevel) bool {
	switch value := fl.Field().Interface().(type) {
	case model.RoomType:
		return value.Valid()
	case string:
		return model.RoomType(value).Valid()
	default:
		return false
	}
}

// Struct validates s and translates failures into ValidationErrors.
func Struct(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return Translate(validationErrs)
	}
	return err
}

func Translate(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "uuid", "uuid4":
			message = fmt.Sprintf("%s must be a valid UUID", err.Field())
		case TagRoomType:
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), roomTypeList())
		}

		out = append(out, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return out
}

func roomTypeList() string {
	names := make([]string, 0, len(model.RoomTypes))
	for _, rt := range model.RoomTypes {
		names = append(names, string(rt))
	}
	return strings.Join(names, ", ")
}

// ToAppError turns a validation failure into a 422 response carrying per-field details.
func ToAppError(message string, err error) *apperrors.AppError {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
