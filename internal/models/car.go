package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Numeric field names as they appear in the training data.
const (
	FieldPowerKW         = "power_kw"
	FieldPowerPS         = "power_ps"
	FieldFuelConsumption = "fuel_consumption_l_100km.1"
	FieldMileage         = "mileage_in_km"
	FieldVehicleAge      = "vehicle_age"
)

// Categorical field names as they appear in the training data.
const (
	FieldBrand        = "brand"
	FieldModel        = "model"
	FieldColor        = "color"
	FieldTransmission = "transmission_type"
	FieldFuelType     = "fuel_type"
)

// NumericFields lists the numeric inputs in the order the scaler was fitted on
var NumericFields = []string{
	FieldPowerKW,
	FieldPowerPS,
	FieldFuelConsumption,
	FieldMileage,
	FieldVehicleAge,
}

// CategoricalFields lists the one-hot encoded inputs
var CategoricalFields = []string{
	FieldBrand,
	FieldModel,
	FieldColor,
	FieldTransmission,
	FieldFuelType,
}

// NumericInput describes one number input of the form
type NumericInput struct {
	Field   string  `json:"field"`
	Label   string  `json:"label"`
	FormKey string  `json:"form_key"`
	Min     float64 `json:"min"`
	Default float64 `json:"default"`
	Step    float64 `json:"step,omitempty"` // 0 means any
}

// PSToKW converts metric horsepower to kilowatts
const PSToKW = 0.7355

// NumericInputs are the form inputs with their lower bounds and defaults
var NumericInputs = []NumericInput{
	{Field: FieldPowerPS, Label: "Power (PS)", FormKey: "power_ps", Min: 50, Default: 150, Step: 1},
	{Field: FieldPowerKW, Label: "Power (KW)", FormKey: "power_kw", Min: 50 * PSToKW, Default: 150 * PSToKW},
	{Field: FieldMileage, Label: "Mileage (km)", FormKey: "mileage", Min: 0, Default: 50000, Step: 1},
	{Field: FieldVehicleAge, Label: "Vehicle Age (years)", FormKey: "vehicle_age", Min: 0, Default: 5, Step: 1},
	{Field: FieldFuelConsumption, Label: "Fuel Consumption (L/100km)", FormKey: "fuel_consumption", Min: 0, Default: 8.0, Step: 0.1},
}

// RawRecord is one car's attributes before encoding.
// It is built per request and never persisted.
type RawRecord struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// CarAttributes is the user-facing input for a single prediction
type CarAttributes struct {
	Brand            string   `json:"brand"`
	Model            string   `json:"model"`
	Color            string   `json:"color"`
	TransmissionType string   `json:"transmission_type"`
	FuelType         string   `json:"fuel_type"`
	PowerPS          *float64 `json:"power_ps"`
	PowerKW          *float64 `json:"power_kw"`
	FuelConsumption  *float64 `json:"fuel_consumption"`
	Mileage          *float64 `json:"mileage"`
	VehicleAge       *float64 `json:"vehicle_age"`
}

// DefaultAttributes returns the attributes the form starts with
func DefaultAttributes() CarAttributes {
	var attrs CarAttributes
	for _, in := range NumericInputs {
		v := in.Default
		*attrs.numericRef(in.Field) = &v
	}
	return attrs
}

// numericRef returns the struct slot backing a numeric field
func (a *CarAttributes) numericRef(field string) **float64 {
	switch field {
	case FieldPowerPS:
		return &a.PowerPS
	case FieldPowerKW:
		return &a.PowerKW
	case FieldFuelConsumption:
		return &a.FuelConsumption
	case FieldMileage:
		return &a.Mileage
	case FieldVehicleAge:
		return &a.VehicleAge
	}
	panic("unknown numeric field: " + field)
}

// Numeric returns the value of a numeric field, nil if unset
func (a *CarAttributes) Numeric(field string) *float64 {
	return *a.numericRef(field)
}

// Categorical returns the value of a categorical field
func (a *CarAttributes) Categorical(field string) string {
	switch field {
	case FieldBrand:
		return a.Brand
	case FieldModel:
		return a.Model
	case FieldColor:
		return a.Color
	case FieldTransmission:
		return a.TransmissionType
	case FieldFuelType:
		return a.FuelType
	}
	return ""
}

// Validate checks numeric inputs against the form's lower bounds.
// Categorical values are not checked: unknown values fall back to the baseline category.
func (a *CarAttributes) Validate() error {
	for _, in := range NumericInputs {
		v := a.Numeric(in.Field)
		if v == nil {
			return &ValidationError{Field: in.Field, Reason: "is required"}
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return &ValidationError{Field: in.Field, Reason: "must be a finite number"}
		}
		// Tolerate float noise around the converted kW bound.
		if *v < in.Min-1e-9 {
			return &ValidationError{Field: in.Field, Reason: fmt.Sprintf("must be at least %g", in.Min)}
		}
	}
	return nil
}

// Record converts the attributes into a raw record keyed by training column names.
// Unset numeric fields are left out so the encoder reports them.
func (a *CarAttributes) Record() RawRecord {
	rec := RawRecord{
		Numeric:     make(map[string]float64, len(NumericFields)),
		Categorical: make(map[string]string, len(CategoricalFields)),
	}
	for _, f := range NumericFields {
		if v := a.Numeric(f); v != nil {
			rec.Numeric[f] = *v
		}
	}
	for _, f := range CategoricalFields {
		rec.Categorical[f] = a.Categorical(f)
	}
	return rec
}

// ParseForm builds attributes from submitted form values.
// A numeric value that does not parse is a ValidationError.
func ParseForm(get func(key string) string) (CarAttributes, error) {
	attrs := CarAttributes{
		Brand:            get("brand"),
		Model:            get("model"),
		Color:            get("color"),
		TransmissionType: get("transmission_type"),
		FuelType:         get("fuel_type"),
	}

	for _, in := range NumericInputs {
		raw := strings.TrimSpace(get(in.FormKey))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return attrs, &ValidationError{Field: in.Field, Reason: fmt.Sprintf("%q is not a number", raw)}
		}
		*attrs.numericRef(in.Field) = &v
	}

	return attrs, nil
}
