package validator

import (
	"errors"
	"fmt"
	"strings"

	"campuspark/pkg/logger"
	"campuspark/pkg/model"
	"campuspark/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

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

type ReservationValidator struct {
	validate      *validator.Validate
	maxEventSpots int
	logger        *logger.Logger
}

func NewReservationValidator(maxEventSpots int, log *logger.Logger) *ReservationValidator {
	v := validator.New()

	if err := v.RegisterValidation("spot_id", validateSpotID); err != nil {
		log.Fatal("Failed to register 'spot_id' validator", "error", err)
	}

	return &ReservationValidator{
		validate:      v,
		maxEventSpots: maxEventSpots,
		logger:        log,
	}
}

func validateSpotID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "" && sanitizer.NormalizeSpotID(id) == id
}

// Validate checks a create request after sanitizing. Window rules are the
// lifecycle manager's concern and are not checked here.
func (v *ReservationValidator) Validate(req *model.ReservationCreate) error {
	if err := v.structErrors(req); err != nil {
		return err
	}

	var errs ValidationErrors
	spots := len(req.Spots())
	switch req.Kind {
	case model.KindEvent:
		if spots == 0 {
			errs = append(errs, ValidationError{Field: "SpotIDs", Message: "event reservations need at least one spot"})
		}
		if spots > v.maxEventSpots {
			errs = append(errs, ValidationError{
				Field:   "SpotIDs",
				Message: fmt.Sprintf("event reservations may hold at most %d spots, got %d", v.maxEventSpots, spots),
			})
		}
	default:
		if spots != 1 {
			errs = append(errs, ValidationError{
				Field:   "SpotID",
				Message: fmt.Sprintf("regular reservations hold exactly one spot, got %d", spots),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *ReservationValidator) ValidateUpdate(req *model.ReservationUpdate) error {
	return v.structErrors(req)
}

func (v *ReservationValidator) ValidateDecision(req *model.AdminDecision) error {
	return v.structErrors(req)
}

func (v *ReservationValidator) ValidatePayment(req *model.PaymentConfirmation) error {
	return v.structErrors(req)
}

func (v *ReservationValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required", "required_if":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "spot_id":
			message = fmt.Sprintf("%s must contain only letters, digits, '_', '-', ':' or '.'", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
