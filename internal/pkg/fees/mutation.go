package fees

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError rejects an admin fee mutation. Message is safe to show to the client.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Mutation is the outcome of a valid admin fee request: either the stored
// record is erased entirely (Clear) or replaced by Fact.
type Mutation struct {
	Clear bool
	Fact  *PaymentFact
}

type mutationInput struct {
	Method        string `validate:"required,oneof=manual stripe"`
	PeriodStart   string `validate:"required,calendardate"`
	Interval      string `validate:"required,oneof=year month"`
	IntervalCount *int64 `validate:"required,gt=0,lte=2147483647"`
	Amount        *int64 `validate:"required,gte=0"`
	Currency      string `validate:"required"`
}

var periodStartPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var mutationValidator = newMutationValidator()

func newMutationValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !periodStartPattern.MatchString(s) {
			return false
		}
		_, err := ParseDate(s)
		return err == nil
	})
	return v
}

// ValidateMutation checks an admin fee request. Fields are checked in a fixed
// order and the first failure is returned. The period start may lie in the past.
func ValidateMutation(req map[string]any) (Mutation, error) {
	payed, ok := req["payed"].(bool)
	if !ok {
		return Mutation{}, &FieldError{Field: "payed", Message: `Invalid value for "payed"`}
	}
	if !payed {
		return Mutation{Clear: true}, nil
	}

	in := mutationInput{
		Method:      looseString(req["method"]),
		PeriodStart: looseString(req["periodStart"]),
		Interval:    looseString(req["interval"]),
		Currency:    strings.TrimSpace(looseString(req["currency"])),
	}
	if n, ok := coerceInt(req["intervalCount"]); ok {
		in.IntervalCount = &n
	}
	if n, ok := coerceInt(req["amount"]); ok {
		in.Amount = &n
	}

	if err := mutationValidator.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Mutation{}, mutationFieldError(verrs[0], in)
		}
		return Mutation{}, err
	}

	start, _ := ParseDate(in.PeriodStart)
	return Mutation{Fact: &PaymentFact{
		Method:        Method(in.Method),
		PeriodStart:   start,
		Interval:      Interval(in.Interval),
		IntervalCount: int(*in.IntervalCount),
		Amount:        *in.Amount,
		Currency:      strings.ToUpper(in.Currency),
	}}, nil
}

func mutationFieldError(fe validator.FieldError, in mutationInput) *FieldError {
	switch fe.StructField() {
	case "Method":
		if fe.Tag() == "required" {
			return &FieldError{Field: "method", Message: "Payment method is required"}
		}
		return &FieldError{Field: "method", Message: "Invalid payment method " + in.Method}
	case "PeriodStart":
		if fe.Tag() == "required" {
			return &FieldError{Field: "periodStart", Message: "Period start date is required"}
		}
		return &FieldError{Field: "periodStart", Message: "Period start date must be in format YYYY-MM-DD"}
	case "Interval":
		return &FieldError{Field: "interval", Message: strings.TrimSpace("Invalid interval " + in.Interval)}
	case "IntervalCount":
		return &FieldError{Field: "intervalCount", Message: "Invalid interval count"}
	case "Amount":
		return &FieldError{Field: "amount", Message: "Invalid amount"}
	default:
		return &FieldError{Field: "currency", Message: "No currency specified"}
	}
}

// looseString renders scalar request values the way they were typed.
func looseString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if !s {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(s)
	}
}
