package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCreateTypeRequest() CreateDeliverableTypeRequest {
	return CreateDeliverableTypeRequest{
		TypeKey:      "static_post",
		Label:        "Static Post",
		UnitLabel:    "posts",
		HoursPerUnit: 2,
	}
}

func TestValidateCreateDeliverableTypeRequest(t *testing.T) {
	assert.Empty(t, ValidateCreateDeliverableTypeRequest(validCreateTypeRequest()))
}

func TestValidateCreateDeliverableTypeRequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateDeliverableTypeRequest)
		field  string
	}{
		{"missing typeKey", func(r *CreateDeliverableTypeRequest) { r.TypeKey = "" }, "typeKey"},
		{"uppercase typeKey", func(r *CreateDeliverableTypeRequest) { r.TypeKey = "StaticPost" }, "typeKey"},
		{"typeKey starts with digit", func(r *CreateDeliverableTypeRequest) { r.TypeKey = "1post" }, "typeKey"},
		{"typeKey too short", func(r *CreateDeliverableTypeRequest) { r.TypeKey = "x" }, "typeKey"},
		{"missing label", func(r *CreateDeliverableTypeRequest) { r.Label = "" }, "label"},
		{"missing unitLabel", func(r *CreateDeliverableTypeRequest) { r.UnitLabel = "" }, "unitLabel"},
		{"zero hours", func(r *CreateDeliverableTypeRequest) { r.HoursPerUnit = 0 }, "hoursPerUnit"},
		{"negative hours", func(r *CreateDeliverableTypeRequest) { r.HoursPerUnit = -1 }, "hoursPerUnit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateTypeRequest()
			tt.mutate(&req)
			errs := ValidateCreateDeliverableTypeRequest(req)
			assert.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidateUpdateDeliverableTypeRequest(t *testing.T) {
	assert.Empty(t, ValidateUpdateDeliverableTypeRequest(UpdateDeliverableTypeRequest{}), "nil fields are not validated")

	empty := ""
	errs := ValidateUpdateDeliverableTypeRequest(UpdateDeliverableTypeRequest{Label: &empty})
	assert.Len(t, errs, 1)

	negative := -0.5
	errs = ValidateUpdateDeliverableTypeRequest(UpdateDeliverableTypeRequest{HoursPerUnit: &negative})
	assert.Len(t, errs, 1)
	assert.Equal(t, "hoursPerUnit", errs[0].Field)
}
