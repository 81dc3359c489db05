package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
)

// Validator checks planning input before it leaves the client
type Validator struct {
	structs *validator.Validate
}

// New creates a new Validator
func New() *Validator {
	return &Validator{structs: validator.New(validator.WithRequiredStructEnabled())}
}

// Struct exposes the underlying struct validator for callers that share it
func (v *Validator) Struct() *validator.Validate {
	return v.structs
}

// ValidateRequest checks a submission body against its struct tags
func (v *Validator) ValidateRequest(req *models.PlanRequest) error {
	switch n := len(req.HeritageIDs); {
	case n < constants.MinHeritageItems:
		return errors.New(constants.MsgNoHeritage)
	case n > constants.MaxHeritageItems:
		return errors.New(constants.MsgTooManyHeritage)
	}
	if err := v.structs.Struct(req); err != nil {
		return fmt.Errorf("invalid plan request: %s", FormatFieldErrors(err))
	}
	return nil
}

// FieldErrors maps each failing field to the tag it failed on
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		out[e.Field()] = e.Tag()
	}
	return out
}

// FormatFieldErrors renders FieldErrors in a stable order
func FormatFieldErrors(err error) string {
	fields := FieldErrors(err)
	if fields == nil {
		return err.Error()
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s (%s)", k, fields[k]))
	}
	return strings.Join(parts, ", ")
}
