package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Defaults for the optional request fields.
const (
	DefaultHour      = 18
	DefaultDay       = 3
	DefaultMonth     = 6
	DefaultVictimAge = 25
	DefaultAreaType  = "Residential"
)

/*
Request holds the coerced fields of a prediction request
*/
type Request struct {
	City      string
	Area      string
	AreaType  string
	Hour      int
	Day       int
	Month     int
	VictimAge int
}

/*
ParseRequest extracts a Request from raw JSON fields.

City and area are checked before anything else so that a request missing
either always fails with ErrMissingLocation. Optional integer fields fall
back to their defaults when absent and fail with ErrInvalidField when they
cannot be coerced.
*/
func ParseRequest(fields map[string]json.RawMessage) (Request, error) {
	city, okCity := stringField(fields["city"])
	area, okArea := stringField(fields["area"])
	if !okCity || !okArea {
		return Request{}, ErrMissingLocation
	}

	req := Request{City: city, Area: area, AreaType: DefaultAreaType}
	if areaType, ok := stringField(fields["area_type"]); ok {
		req.AreaType = areaType
	}

	var err error
	if req.Hour, err = intField(fields, "hour", DefaultHour); err != nil {
		return Request{}, err
	}
	if req.Day, err = intField(fields, "day", DefaultDay); err != nil {
		return Request{}, err
	}
	if req.Month, err = intField(fields, "month", DefaultMonth); err != nil {
		return Request{}, err
	}
	if req.VictimAge, err = intField(fields, "victim_age", DefaultVictimAge); err != nil {
		return Request{}, err
	}
	return req, nil
}

/*
NightFactor is 1 between 20:00 and 06:59, 0 otherwise
*/
func NightFactor(hour int) int {
	if hour >= 20 || hour <= 6 {
		return 1
	}
	return 0
}

/*
BuildFeatures maps a request onto the classifier's input columns
*/
func BuildFeatures(req Request) FeatureVector {
	return FeatureVector{
		float64(req.Hour),
		float64(req.Day),
		float64(req.Month),
		float64(req.VictimAge),
		float64(NightFactor(req.Hour)),
	}
}

// stringField reports whether raw is a non-empty JSON string.
func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, s != ""
}

func intField(fields map[string]json.RawMessage, name string, def int) (int, error) {
	raw, ok := fields[name]
	if !ok {
		return def, nil
	}
	v, err := coerceInt(raw)
	if err != nil {
		return 0, eris.Wrapf(ErrInvalidField, "%s: %v", name, err)
	}
	return v, nil
}

// coerceInt accepts numbers (truncated toward zero), integer strings and booleans.
func coerceInt(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return 0, err
	}

	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
			return 0, eris.Errorf("number %s out of range", v.String())
		}
		return int(math.Trunc(f)), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, eris.Errorf("invalid literal %q", v)
		}
		return i, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, eris.New("null is not an integer")
	default:
		return 0, eris.Errorf("unsupported type %T", v)
	}
}
