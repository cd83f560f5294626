package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NonFieldErrors is the error key used for record-level (cross-field)
// validation failures.
const NonFieldErrors = "non_field_errors"

// Validation messages are part of the API contract and must not be
// reworded.
const (
	MsgRequiredField    = "Обязательное поле."
	MsgInvalidValue     = "Недопустимое значение."
	MsgAwardAndRelated  = "Ошибка. Нельзя связать эту привычку и вознаграждение"
	MsgTimeToComplete   = "Время выполнения должно быть не больше 120 секунд."
	MsgRelatedNotGood   = "Ошибка. Привычка должна быть приятной"
	MsgGoodHabitNoExtra = "У приятной привычки не может быть вознаграждения или связанной привычки."
)

// Error is a validation failure scoped either to a single field or,
// under the NonFieldErrors key, to the whole record.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AsError unwraps a validation Error from err, or returns nil.
func AsError(err error) *Error {
	var verr *Error
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}

func fieldRequired(field string) *Error {
	return &Error{Field: field, Message: MsgRequiredField}
}

func recordError(message string) *Error {
	return &Error{Field: NonFieldErrors, Message: message}
}

// Validate is the shared struct validator. Field names in errors come
// from json tags so handler error bodies match the wire format.
var Validate *validator.Validate

func init() {
	Validate = validator.New()
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FirstFieldError converts the first violation in a validator error
// into a field-scoped Error, preserving the contract messages.
func FirstFieldError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return recordError(MsgInvalidValue)
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return fieldRequired(fe.Field())
	}
	return &Error{Field: fe.Field(), Message: MsgInvalidValue}
}
