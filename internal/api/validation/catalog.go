package validation

import "regexp"

var typeKeyRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{1,62}$`)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CreateDeliverableTypeRequest mirrors the fields needed for create validation.
type CreateDeliverableTypeRequest struct {
	TypeKey      string
	Label        string
	UnitLabel    string
	HoursPerUnit float64
}

// ValidateCreateDeliverableTypeRequest validates the fields of a create
// deliverable type request. Returns a slice of field errors; empty means valid.
func ValidateCreateDeliverableTypeRequest(req CreateDeliverableTypeRequest) []FieldError {
	var errs []FieldError

	if req.TypeKey == "" {
		errs = append(errs, FieldError{Field: "typeKey", Message: "typeKey is required"})
	} else if !typeKeyRegex.MatchString(req.TypeKey) {
		errs = append(errs, FieldError{Field: "typeKey", Message: "typeKey must be lowercase alphanumeric with underscores, 2-63 characters, starting with a letter"})
	}

	if req.Label == "" {
		errs = append(errs, FieldError{Field: "label", Message: "label is required"})
	}
	if req.UnitLabel == "" {
		errs = append(errs, FieldError{Field: "unitLabel", Message: "unitLabel is required"})
	}
	if req.HoursPerUnit <= 0 {
		errs = append(errs, FieldError{Field: "hoursPerUnit", Message: "hoursPerUnit must be positive"})
	}

	return errs
}

// UpdateDeliverableTypeRequest mirrors the fields needed for update validation.
// Nil fields are not validated.
type UpdateDeliverableTypeRequest struct {
	Label        *string
	UnitLabel    *string
	HoursPerUnit *float64
}

// ValidateUpdateDeliverableTypeRequest validates only non-nil fields.
func ValidateUpdateDeliverableTypeRequest(req UpdateDeliverableTypeRequest) []FieldError {
	var errs []FieldError

	if req.Label != nil && *req.Label == "" {
		errs = append(errs, FieldError{Field: "label", Message: "label must not be empty"})
	}
	if req.UnitLabel != nil && *req.UnitLabel == "" {
		errs = append(errs, FieldError{Field: "unitLabel", Message: "unitLabel must not be empty"})
	}
	if req.HoursPerUnit != nil && *req.HoursPerUnit <= 0 {
		errs = append(errs, FieldError{Field: "hoursPerUnit", Message: "hoursPerUnit must be positive"})
	}

	return errs
}
