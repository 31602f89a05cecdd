package validation

// DeductionRequest mirrors the fields needed for deduction request validation.
type DeductionRequest struct {
	DeliverableType string
	Quantity        int
	RequestedBy     string
}

// ValidateDeductionRequest validates the fields of a deduction request.
func ValidateDeductionRequest(req DeductionRequest) []FieldError {
	var errs []FieldError

	if req.DeliverableType == "" {
		errs = append(errs, FieldError{Field: "deliverableType", Message: "deliverableType is required"})
	}
	if req.Quantity <= 0 {
		errs = append(errs, FieldError{Field: "quantity", Message: "quantity must be positive"})
	}
	if req.RequestedBy == "" {
		errs = append(errs, FieldError{Field: "requestedBy", Message: "requestedBy is required"})
	}

	return errs
}

// OverrideRequest mirrors the fields needed for usage override validation.
type OverrideRequest struct {
	Field string
	Value int
}

// ValidateOverrideRequest validates the fields of a usage override request.
func ValidateOverrideRequest(req OverrideRequest) []FieldError {
	var errs []FieldError

	if req.Field != "used" && req.Field != "total" {
		errs = append(errs, FieldError{Field: "field", Message: `field must be "used" or "total"`})
	}
	if req.Value < 0 {
		errs = append(errs, FieldError{Field: "value", Message: "value must not be negative"})
	}

	return errs
}
