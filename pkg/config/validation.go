package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/XiaoConstantine/stackgp-go/pkg/errors"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Tag     string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "min":
		return fmt.Sprintf("%s is below its minimum", e.Field)
	case "max":
		return fmt.Sprintf("%s is above its maximum", e.Field)
	case "oneof":
		return fmt.Sprintf("%s must be one of the recognized options", e.Field)
	default:
		return fmt.Sprintf("%s failed validation", e.Field)
	}
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

var validate = validator.New()

// Validate checks the configuration and fails fast with a ConfigurationError
// before any generation runs.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New(errors.ConfigurationError, "config is nil")
	}

	var validationErrors ValidationErrors
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errs {
				validationErrors = append(validationErrors, ValidationError{
					Field: e.Field(),
					Tag:   e.Tag(),
					Value: e.Value(),
				})
			}
		} else {
			validationErrors = append(validationErrors, ValidationError{
				Message: err.Error(),
			})
		}
	}
	validationErrors = append(validationErrors, c.crossFieldRules()...)

	if len(validationErrors) > 0 {
		return errors.Wrap(validationErrors, errors.ConfigurationError,
			"invalid GA configuration")
	}
	return nil
}

// crossFieldRules covers constraints that span multiple fields.
func (c *Config) crossFieldRules() ValidationErrors {
	var errs ValidationErrors
	if c.MinLen > c.MaxLen {
		errs = append(errs, ValidationError{
			Field:   "MinLen",
			Message: fmt.Sprintf("min_len (%d) exceeds max_len (%d)", c.MinLen, c.MaxLen),
		})
	}
	if c.LiteralMin > c.LiteralMax {
		errs = append(errs, ValidationError{
			Field:   "LiteralMin",
			Message: fmt.Sprintf("literal_min (%d) exceeds literal_max (%d)", c.LiteralMin, c.LiteralMax),
		})
	}
	if c.ElitismCount >= c.PopulationSize && c.PopulationSize > 0 {
		errs = append(errs, ValidationError{
			Field:   "ElitismCount",
			Message: fmt.Sprintf("elitism_count (%d) must be below population_size (%d)", c.ElitismCount, c.PopulationSize),
		})
	}
	if c.Selection == SelectionTournament && c.TournamentSize > c.PopulationSize && c.PopulationSize > 0 {
		errs = append(errs, ValidationError{
			Field:   "TournamentSize",
			Message: fmt.Sprintf("tournament_size (%d) exceeds population_size (%d)", c.TournamentSize, c.PopulationSize),
		})
	}
	return errs
}
