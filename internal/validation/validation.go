// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/laundryhub/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Денежные суммы сравниваются как числа, чтобы работали теги gt/gte.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return v
}

// Struct проверяет структуру по тегам validate. Ошибка оборачивает model.ErrValidation
// и содержит человекочитаемое описание первого нарушения.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", model.ErrValidation, message(verrs[0]))
	}
	return fmt.Errorf("%w: %s", model.ErrValidation, err.Error())
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "please include a valid " + field
	case "min":
		return fmt.Sprintf("%s must be %s or more characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return field + " is invalid"
}

// MaxMoney ограничивает целую часть денежных сумм 12 знаками, как NUMERIC(14, 2) в БД.
var MaxMoney = decimal.New(1, 12)

// Money проверяет, что сумма field хранится без округления: не больше двух знаков после запятой
// и меньше MaxMoney по модулю.
func Money(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: %s must have at most 2 decimal places", model.ErrValidation, field)
	}
	if amount.Abs().GreaterThanOrEqual(MaxMoney) {
		return fmt.Errorf("%w: %s must be less than %s", model.ErrValidation, field, MaxMoney)
	}
	return nil
}

// PositiveAmount проверяет, что сумма строго больше нуля и укладывается в формат хранения.
func PositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", model.ErrValidation)
	}
	return Money("amount", amount)
}
