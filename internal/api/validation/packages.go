package validation

import "fmt"

// AllocationRequest mirrors one allocation line of a template request.
type AllocationRequest struct {
	DeliverableType  string
	TotalAllocated   int
	UnitLabel        string
	WarningThreshold int
}

// CreateTemplateRequest mirrors the fields needed for create template validation.
type CreateTemplateRequest struct {
	Name        string
	Tier        string
	PlanType    string
	MonthlyFee  float64
	Allocations []AllocationRequest
}

// ValidateCreateTemplateRequest validates the fields of a create template request.
func ValidateCreateTemplateRequest(req CreateTemplateRequest) []FieldError {
	var errs []FieldError

	if req.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if req.Tier == "" {
		errs = append(errs, FieldError{Field: "tier", Message: "tier is required"})
	}
	if req.PlanType == "" {
		errs = append(errs, FieldError{Field: "planType", Message: "planType is required"})
	}
	if req.MonthlyFee < 0 {
		errs = append(errs, FieldError{Field: "monthlyFee", Message: "monthlyFee must not be negative"})
	}

	errs = append(errs, validateAllocations(req.Allocations)...)

	return errs
}

func validateAllocations(allocs []AllocationRequest) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool, len(allocs))
	for i, a := range allocs {
		field := fmt.Sprintf("allocations[%d]", i)

		if a.DeliverableType == "" {
			errs = append(errs, FieldError{Field: field + ".deliverableType", Message: "deliverableType is required"})
		} else if seen[a.DeliverableType] {
			errs = append(errs, FieldError{Field: field + ".deliverableType", Message: fmt.Sprintf("deliverableType %q appears more than once", a.DeliverableType)})
		}
		seen[a.DeliverableType] = true

		if a.TotalAllocated < 0 {
			errs = append(errs, FieldError{Field: field + ".totalAllocated", Message: "totalAllocated must not be negative"})
		}
		if a.WarningThreshold < 0 || a.WarningThreshold > 100 {
			errs = append(errs, FieldError{Field: field + ".warningThreshold", Message: "warningThreshold must be between 0 and 100"})
		}
	}

	return errs
}
