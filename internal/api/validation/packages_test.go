package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTemplateRequest() CreateTemplateRequest {
	return CreateTemplateRequest{
		Name:       "Growth",
		Tier:       "standard",
		PlanType:   "monthly",
		MonthlyFee: 1500,
		Allocations: []AllocationRequest{
			{DeliverableType: "static_post", TotalAllocated: 10, WarningThreshold: 20},
		},
	}
}

func TestValidateCreateTemplateRequest(t *testing.T) {
	assert.Empty(t, ValidateCreateTemplateRequest(validTemplateRequest()))
}

func TestValidateCreateTemplateRequestErrors(t *testing.T) {
	req := validTemplateRequest()
	req.Name = ""
	req.MonthlyFee = -1

	errs := ValidateCreateTemplateRequest(req)
	require.Len(t, errs, 2)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "monthlyFee", errs[1].Field)
}

func TestValidateAllocationRequests(t *testing.T) {
	req := validTemplateRequest()
	req.Allocations = []AllocationRequest{
		{DeliverableType: "static_post", TotalAllocated: 10},
		{DeliverableType: "static_post", TotalAllocated: 5},
		{DeliverableType: "", TotalAllocated: -1, WarningThreshold: 120},
	}

	errs := ValidateCreateTemplateRequest(req)

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "allocations[1].deliverableType")
	assert.Contains(t, fields, "allocations[2].deliverableType")
	assert.Contains(t, fields, "allocations[2].totalAllocated")
	assert.Contains(t, fields, "allocations[2].warningThreshold")
}
