package validator

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/instantquiz-service/internal/formula"
	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

var (
	commentModes = map[string]models.CommentMode{
		"disabled": models.CommentDisabled,
		"optional": models.CommentOptional,
		"required": models.CommentRequired,
	}

	textFormats = []string{"html", "plain", "markdown"}

	// KnownTemplates lists the template ids accepted when a quiz is created
	KnownTemplates = []string{models.TemplateBasic, models.TemplateOpen}
)

// ParseCommentMode maps the API name of a comment mode to the model value
func ParseCommentMode(name string) (models.CommentMode, bool) {
	mode, ok := commentModes[strings.ToLower(strings.TrimSpace(name))]
	return mode, ok
}

// CommentModeName is the inverse of ParseCommentMode
func CommentModeName(mode models.CommentMode) string {
	for name, m := range commentModes {
		if m == mode {
			return name
		}
	}
	return "disabled"
}

func (v *Validator) registerBusinessRules() {
	// Feedback formulas must parse with the restricted grammar
	v.validate.RegisterValidation("formula", func(fl validator.FieldLevel) bool {
		return formula.Validate(fl.Field().String()) == nil
	})

	v.validate.RegisterValidation("comment_mode", func(fl validator.FieldLevel) bool {
		_, ok := ParseCommentMode(fl.Field().String())
		return ok
	})

	v.validate.RegisterValidation("quiz_template", func(fl validator.FieldLevel) bool {
		return slices.Contains(KnownTemplates, fl.Field().String())
	})

	v.validate.RegisterValidation("text_format", func(fl validator.FieldLevel) bool {
		return slices.Contains(textFormats, fl.Field().String())
	})
}

// ValidateSchedule checks that the quiz closes after it opens
func (v *Validator) ValidateSchedule(timeOpen, timeClose *time.Time) ValidationErrors {
	if timeOpen != nil && timeClose != nil && !timeClose.After(*timeOpen) {
		return ValidationErrors{{
			Field:   "time_close",
			Message: "must be after time_open",
			Value:   timeClose,
			Rule:    "schedule",
		}}
	}
	return nil
}

// ValidateCardinality checks min/max selection bounds of a question
func (v *Validator) ValidateCardinality(minOptions, maxOptions int) ValidationErrors {
	if maxOptions > 0 && minOptions > maxOptions {
		return ValidationErrors{{
			Field:   "max_options",
			Message: fmt.Sprintf("must be at least min_options (%d)", minOptions),
			Value:   maxOptions,
			Rule:    "cardinality",
		}}
	}
	return nil
}

// ValidateOptions rejects duplicated option indexes and display values. A non-zero idx
// must be one of existingIdx, the indexes the question currently has.
func (v *Validator) ValidateOptions(options []OptionRequest, existingIdx []int) ValidationErrors {
	var errs ValidationErrors
	seenIdx := make(map[int]bool)
	seenValue := make(map[string]bool)

	for i, option := range options {
		if option.Idx > 0 {
			if !slices.Contains(existingIdx, option.Idx) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("options[%d].idx", i),
					Message: "does not belong to an existing option",
					Value:   option.Idx,
					Rule:    "existing_idx",
				})
			} else if seenIdx[option.Idx] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("options[%d].idx", i),
					Message: "is used by another option",
					Value:   option.Idx,
					Rule:    "unique",
				})
			}
			seenIdx[option.Idx] = true
		}
		if seenValue[option.Value] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("options[%d].value", i),
				Message: "is used by another option",
				Value:   option.Value,
				Rule:    "unique",
			})
		}
		seenValue[option.Value] = true
	}
	return errs
}
