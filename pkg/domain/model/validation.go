package model

import (
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// ErrValidation marks input rejected with per-field reasons
var ErrValidation = goerr.New("validation failed")

// FieldErrors maps a field name to the reason it was rejected
type FieldErrors map[string]string

// Add records reason for field unless one is already recorded
func (f FieldErrors) Add(field, reason string) {
	if _, ok := f[field]; !ok {
		f[field] = reason
	}
}

// Err returns nil when empty, otherwise an ErrValidation carrying the fields
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return goerr.Wrap(ErrValidation, "invalid fields: "+strings.Join(names, ", "),
		goerr.V(FieldErrorsKey, map[string]string(f)))
}

// FieldErrorsKey is the goerr value key holding FieldErrors
const FieldErrorsKey = "fields"

// FieldErrorsOf extracts per-field reasons from an error built by FieldErrors.Err
func FieldErrorsOf(err error) map[string]string {
	for _, ge := range unwrapAll(err) {
		if fields, ok := ge.Values()[FieldErrorsKey].(map[string]string); ok {
			return fields
		}
	}
	return nil
}

func unwrapAll(err error) []*goerr.Error {
	var out []*goerr.Error
	for err != nil {
		if ge := goerr.Unwrap(err); ge != nil {
			out = append(out, ge)
			err = ge.Unwrap()
			continue
		}
		break
	}
	return out
}

// Oldest vehicle year accepted on a claim
const minVehicleYear = 1900

// ValidateClaim checks a new claim's required attributes. now bounds the incident date.
func ValidateClaim(c *Claim, now time.Time) error {
	fields := FieldErrors{}
	required := map[string]string{
		"title":               c.Title,
		"policy_number":       c.PolicyNumber,
		"policyholder_name":   c.PolicyholderName,
		"vehicle_make":        c.VehicleMake,
		"vehicle_model":       c.VehicleModel,
		"registration_number": c.RegistrationNumber,
		"description":         c.Description,
	}
	for name, v := range required {
		if strings.TrimSpace(v) == "" {
			fields.Add(name, "required")
		}
	}

	if c.IncidentDate.IsZero() {
		fields.Add("incident_date", "required")
	} else if c.IncidentDate.After(now) {
		fields.Add("incident_date", "must not be in the future")
	}

	if c.ClaimedAmount <= 0 {
		fields.Add("claimed_amount", "must be greater than zero")
	}

	if c.VehicleYear != 0 && (c.VehicleYear < minVehicleYear || c.VehicleYear > now.Year()+1) {
		fields.Add("vehicle_year", "out of range")
	}

	return fields.Err()
}
