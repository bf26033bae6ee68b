package validator

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/reviewloop/review-service/internal/models"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	return &BusinessValidator{validate: validate}
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateCycleCreate validates review cycle creation business rules
func (bv *BusinessValidator) ValidateCycleCreate(req *CycleCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateCycleDates(req.StartDate, req.EndDate)...)

	return errors
}

// ValidateCycleUpdate validates review cycle update business rules
func (bv *BusinessValidator) ValidateCycleUpdate(req *CycleUpdateRequest, existing *models.ReviewCycle) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if existing.Status == models.CycleClosed {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "closed cycles cannot be modified",
			Value:   existing.Status,
			Rule:    "business_logic",
		})
		return errors
	}

	start := existing.StartDate
	if req.StartDate != nil {
		start = *req.StartDate
	}
	end := existing.EndDate
	if req.EndDate != nil {
		end = *req.EndDate
	}
	errors = append(errors, bv.validateCycleDates(start, end)...)

	return errors
}

// ValidateCycleTransition validates review cycle status transitions
func (bv *BusinessValidator) ValidateCycleTransition(current, next models.CycleStatus) ValidationErrors {
	var errors ValidationErrors

	cycle := models.ReviewCycle{Status: current}
	if !cycle.CanTransitionTo(next) {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
			Value:   next,
			Rule:    "status_transition",
		})
	}

	return errors
}

// ValidateFeedbackSubmit validates feedback submission business rules
func (bv *BusinessValidator) ValidateFeedbackSubmit(req *FeedbackSubmitRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if len(req.Answers) > 0 {
		var answers map[string]interface{}
		if err := json.Unmarshal(req.Answers, &answers); err != nil {
			errors = append(errors, ValidationError{
				Field:   "answers",
				Message: "must be a JSON object",
				Rule:    "business_logic",
			})
		} else if len(answers) == 0 {
			errors = append(errors, ValidationError{
				Field:   "answers",
				Message: "cannot be empty",
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// ValidateAssessmentSave validates self-assessment draft content
func (bv *BusinessValidator) ValidateAssessmentSave(req *AssessmentSaveRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if len(req.Content) > 0 && !json.Valid(req.Content) {
		errors = append(errors, ValidationError{
			Field:   "content",
			Message: "must be valid JSON",
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateAttendanceUpsert validates attendance record business rules
func (bv *BusinessValidator) ValidateAttendanceUpsert(req *AttendanceUpsertRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.CheckIn != nil && req.CheckOut != nil && req.CheckOut.Before(*req.CheckIn) {
		errors = append(errors, ValidationError{
			Field:   "check_out",
			Message: "cannot be before check_in",
			Value:   req.CheckOut,
			Rule:    "business_logic",
		})
	}

	return errors
}

func (bv *BusinessValidator) validateCycleDates(start, end time.Time) ValidationErrors {
	var errors ValidationErrors

	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		errors = append(errors, ValidationError{
			Field:   "end_date",
			Message: "must be after start_date",
			Value:   end,
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerCustomTags registers the domain validation tags.
func registerCustomTags(v *validator.Validate) {
	v.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})

	v.RegisterValidation("feedback_kind", func(fl validator.FieldLevel) bool {
		kind := models.FeedbackKind(fl.Field().String())
		return kind == models.FeedbackColleague || kind == models.FeedbackManager
	})

	v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})

	// Feedback ratings are 1..5
	v.RegisterValidation("rating_range", func(fl validator.FieldLevel) bool {
		rating := fl.Field().Int()
		return rating >= 1 && rating <= 5
	})

	// Jira sync periods are months: "2026-01"
	v.RegisterValidation("period_format", func(fl validator.FieldLevel) bool {
		return periodPattern.MatchString(fl.Field().String())
	})

	v.RegisterValidation("future_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()

		if field.Kind() == reflect.Ptr && field.IsNil() {
			return true
		}

		var t time.Time
		if field.Kind() == reflect.Ptr {
			t = field.Elem().Interface().(time.Time)
		} else {
			t = field.Interface().(time.Time)
		}

		return t.After(time.Now())
	})
}
