package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

func validClaim(now time.Time) *model.Claim {
	return &model.Claim{
		Title:              "Rear bumper dent",
		PolicyNumber:       "POL-1001",
		PolicyholderName:   "Asha Rao",
		VehicleMake:        "Maruti",
		VehicleModel:       "Swift",
		VehicleYear:        2019,
		RegistrationNumber: "KA01AB1234",
		IncidentDate:       now.Add(-48 * time.Hour),
		Description:        "Reversed into a pole",
		ClaimedAmount:      12000,
	}
}

func TestValidateClaim(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		gt.NoError(t, model.ValidateClaim(validClaim(now), now))
	})

	tests := []struct {
		name   string
		mutate func(c *model.Claim)
		field  string
	}{
		{name: "missing title", mutate: func(c *model.Claim) { c.Title = " " }, field: "title"},
		{name: "missing policy", mutate: func(c *model.Claim) { c.PolicyNumber = "" }, field: "policy_number"},
		{name: "future incident", mutate: func(c *model.Claim) { c.IncidentDate = now.Add(time.Hour) }, field: "incident_date"},
		{name: "zero incident", mutate: func(c *model.Claim) { c.IncidentDate = time.Time{} }, field: "incident_date"},
		{name: "zero amount", mutate: func(c *model.Claim) { c.ClaimedAmount = 0 }, field: "claimed_amount"},
		{name: "ancient vehicle", mutate: func(c *model.Claim) { c.VehicleYear = 1850 }, field: "vehicle_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaim(now)
			tt.mutate(c)
			err := model.ValidateClaim(c, now)
			gt.Error(t, err).Is(model.ErrValidation)
			fields := model.FieldErrorsOf(err)
			gt.Map(t, fields).HasKey(tt.field)
		})
	}
}

func TestFieldErrorsOfWrapped(t *testing.T) {
	fields := model.FieldErrors{}
	fields.Add("title", "required")
	fields.Add("title", "ignored")
	err := fields.Err()
	gt.Value(t, model.FieldErrorsOf(err)).Equal(map[string]string{"title": "required"})
	gt.Value(t, model.FieldErrors{}.Err()).Nil()
}
