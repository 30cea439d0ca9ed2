package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ValidationError reports the first path in a candidate analysis that does
// not conform to the schema.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	path := e.Path
	if path == "" {
		path = "(root)"
	}
	return path + ": " + e.Reason
}

type nodeKind int

const (
	kindObject nodeKind = iota
	kindNumber
	kindInteger
	kindBool
	kindString
	kindText
	kindSentinelText
	kindEnum
	kindList
	kindSequence
)

type field struct {
	name string
	node *node
}

type node struct {
	kind     nodeKind
	nullable bool
	fields   []field
	elem     *node
	length   int
	values   []string
}

func object(fields ...field) *node { return &node{kind: kindObject, fields: fields} }
func f(name string, n *node) field { return field{name: name, node: n} }
func number() *node { return &node{kind: kindNumber} }
func nullNumber() *node { return &node{kind: kindNumber, nullable: true} }
func integer() *node { return &node{kind: kindInteger} }
func nullBool() *node { return &node{kind: kindBool, nullable: true} }
func str() *node { return &node{kind: kindString} }
func text() *node { return &node{kind: kindText} }
func sentinelText() *node { return &node{kind: kindSentinelText} }
func list(elem *node) *node { return &node{kind: kindList, elem: elem} }
func sequence(n int, elem *node) *node { return &node{kind: kindSequence, elem: elem, length: n} }

func enum(values ...string) *node { return &node{kind: kindEnum, values: values} }

func nullEnum(values ...string) *node {
	return &node{kind: kindEnum, nullable: true, values: values}
}

func category() *node {
	return object(
		f("count", nullNumber()),
		f("vs_national", nullNumber()),
		f("severity", nullEnum("Very Low", "Low", "Moderate", "High", "Very High")),
	)
}

var schema = object(
	f("property_overview", object(
		// address echoes caller input and is exempt from the sentinel rule.
		f("address", text()),
		f("property_type", str()),
		f("units", nullNumber()),
		f("year_built", nullNumber()),
		f("purchase_price", nullNumber()),
		f("price_per_unit", nullNumber()),
		f("cap_rate", nullNumber()),
		f("occupancy_rate", nullNumber()),
		f("is_hud_property", nullBool()),
	)),
	f("investment_ratings", object(
		f("cap_rate_score", number()),
		f("market_stability_score", number()),
		f("crime_safety_score", number()),
		f("overall_score", number()),
	)),
	f("crime_analysis", object(
		f("risk_level", enum("LOW", "MODERATE", "HIGH", "VERY HIGH")),
		f("risk_score", number()),
		f("total_crime_rate", nullNumber()),
		f("violent_crime_rate", nullNumber()),
		f("property_crime_rate", nullNumber()),
		f("theft_rate", nullNumber()),
		f("national_avg_total", nullNumber()),
		f("national_avg_violent", nullNumber()),
		f("national_avg_property", nullNumber()),
		f("national_avg_theft", nullNumber()),
		f("state_avg_total", nullNumber()),
		f("state_avg_violent", nullNumber()),
		f("state_avg_property", nullNumber()),
		f("state_avg_theft", nullNumber()),
		f("victimization_chance", sentinelText()),
		f("yoy_crime_change", nullNumber()),
		f("summary", str()),
	)),
	f("crime_breakdown_2023", object(
		f("total_crimes", nullNumber()),
		f("violent_crimes", object(
			f("total", nullNumber()),
			f("murder", category()),
			f("rape", category()),
			f("robbery", category()),
			f("aggravated_assault", category()),
		)),
		f("property_crimes", object(
			f("total", nullNumber()),
			f("theft_larceny", category()),
			f("motor_vehicle_theft", category()),
			f("burglary", category()),
		)),
	)),
	f("crime_trend_5year", sequence(TrendYears, object(
		f("year", integer()),
		f("total_crimes", nullNumber()),
	))),
	f("crime_type_distribution", object(
		f("theft_larceny_percentage", nullNumber()),
		f("aggravated_assault_percentage", nullNumber()),
		f("motor_vehicle_theft_percentage", nullNumber()),
		f("burglary_percentage", nullNumber()),
		f("rape_percentage", nullNumber()),
		f("robbery_percentage", nullNumber()),
		f("murder_percentage", nullNumber()),
	)),
	f("security_recommendations", list(str())),
	f("market_data", object(
		f("median_rent", nullNumber()),
		f("rent_trend_yoy", nullNumber()),
		f("vacancy_rate", nullNumber()),
		f("vacancy_trend", nullEnum("Rising", "Stable", "Falling")),
		f("market_demand", nullEnum("Weak", "Moderate", "Strong", "Very Strong")),
		f("rental_rates_by_bedroom", sequence(BedroomTypes, object(
			f("type", str()),
			f("avg_rent", nullNumber()),
			f("avg_sqft", nullNumber()),
		))),
	)),
	f("dining_retail_analysis", object(
		f("total_restaurants", nullNumber()),
		f("restaurants_per_1000", nullNumber()),
		f("restaurant_distribution", object(
			f("american", nullNumber()),
			f("fast_food_chains", nullNumber()),
			f("bars_pubs", nullNumber()),
			f("asian", nullNumber()),
			f("mexican", nullNumber()),
			f("other", nullNumber()),
		)),
		f("market_gap", sentinelText()),
		f("dominant_categories", list(str())),
	)),
	f("economic_indicators", object(
		f("population", nullNumber()),
		f("median_household_income", nullNumber()),
		f("unemployment_rate", nullNumber()),
		f("poverty_rate", nullNumber()),
		f("median_home_value", nullNumber()),
		f("cost_of_living_index", nullNumber()),
		f("major_employers", list(str())),
		f("economic_growth_trend", nullEnum("Declining", "Stable", "Growing", "Rapidly Growing")),
	)),
	f("recommendation", object(
		f("invest_decision", enum("STRONG BUY", "BUY", "HOLD", "AVOID", "STRONG AVOID")),
		f("confidence_level", number()),
		f("key_strengths", list(str())),
		f("key_concerns", list(str())),
		f("required_actions", list(str())),
		f("executive_summary", str()),
	)),
)

// Validate checks a decoded JSON value against the analysis schema and
// returns the typed analysis. v is usually the product of decodeJSON, but
// values decoded without UseNumber are accepted as well.
func Validate(v any) (PropertyAnalysis, error) {
	if err := schema.check("", v); err != nil {
		return PropertyAnalysis{}, err
	}
	blob, err := json.Marshal(v)
	if err != nil {
		return PropertyAnalysis{}, &ValidationError{Reason: "re-encode: " + err.Error()}
	}
	var out PropertyAnalysis
	if err := json.Unmarshal(blob, &out); err != nil {
		return PropertyAnalysis{}, &ValidationError{Reason: "decode: " + err.Error()}
	}
	return out, nil
}

// ValidateJSON decodes data and validates it. Syntax errors are returned
// wrapped, schema violations as *ValidationError.
func ValidateJSON(data []byte) (PropertyAnalysis, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return PropertyAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	return Validate(v)
}

var errTrailingData = errors.New("unexpected data after JSON value")

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

func (n *node) check(path string, v any) error {
	if v == nil {
		if n.nullable {
			return nil
		}
		return fail(path, "must not be null")
	}
	switch n.kind {
	case kindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return fail(path, "expected object, got %s", describe(v))
		}
		for _, fd := range n.fields {
			p := join(path, fd.name)
			child, present := m[fd.name]
			if !present {
				return fail(p, "required field is missing")
			}
			if err := fd.node.check(p, child); err != nil {
				return err
			}
		}
	case kindNumber:
		if _, ok := asFloat(v); !ok {
			return fail(path, "expected number, got %s", describe(v))
		}
	case kindInteger:
		if _, ok := asInt(v); !ok {
			return fail(path, "expected integer, got %s", describe(v))
		}
	case kindBool:
		if _, ok := v.(bool); !ok {
			return fail(path, "expected boolean, got %s", describe(v))
		}
	case kindString, kindText, kindSentinelText:
		s, ok := v.(string)
		if !ok {
			return fail(path, "expected string, got %s", describe(v))
		}
		if n.kind == kindString && s == NotFound {
			return fail(path, "%s is not allowed here", NotFound)
		}
	case kindEnum:
		s, ok := v.(string)
		if !ok {
			return fail(path, "expected string, got %s", describe(v))
		}
		for _, allowed := range n.values {
			if s == allowed {
				return nil
			}
		}
		return fail(path, "%q is not one of [%s]", s, strings.Join(n.values, ", "))
	case kindList, kindSequence:
		items, ok := v.([]any)
		if !ok {
			return fail(path, "expected array, got %s", describe(v))
		}
		if n.kind == kindSequence && len(items) != n.length {
			return fail(path, "expected exactly %d entries, got %d", n.length, len(items))
		}
		for i, item := range items {
			if err := n.elem.check(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	}
	return nil
}

func fail(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func asFloat(v any) (float64, bool) {
	var x float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		x = parsed
	case float64:
		x = n
	case float32:
		x = float64(n)
	case int:
		x = float64(n)
	case int64:
		x = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func describe(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
