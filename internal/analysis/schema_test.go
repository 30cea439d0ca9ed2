package analysis

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "valid_analysis.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

// mutateFixture decodes the fixture, applies fn and re-encodes it.
func mutateFixture(t *testing.T, fn func(m map[string]any)) []byte {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(loadFixture(t), &m); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	fn(m)
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return out
}

func obj(m map[string]any, path ...string) map[string]any {
	for _, p := range path {
		m = m[p].(map[string]any)
	}
	return m
}

func TestValidateJSONAcceptsFixture(t *testing.T) {
	a, err := ValidateJSON(loadFixture(t))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if a.PropertyOverview.Units == nil || *a.PropertyOverview.Units != 24 {
		t.Fatalf("unexpected units: %v", a.PropertyOverview.Units)
	}
	if a.MarketData.MarketDemand == nil || *a.MarketData.MarketDemand != DemandStrong {
		t.Fatalf("unexpected market demand: %v", a.MarketData.MarketDemand)
	}
	if a.DiningRetailAnalysis.MarketGap != NotFound {
		t.Fatalf("sentinel should survive in market_gap, got %q", a.DiningRetailAnalysis.MarketGap)
	}
	burglary := a.CrimeBreakdown2023.PropertyCrimes.Burglary
	if burglary.Severity != nil || burglary.VsNational != nil {
		t.Fatalf("null leaves should decode as nil: %+v", burglary)
	}
	if a.CrimeTrend5Year[4].Year != 2023 {
		t.Fatalf("unexpected trend: %+v", a.CrimeTrend5Year)
	}
}

func TestValidateRejectsNonConformingPayloads(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(m map[string]any)
		path   string
		reason string
	}{
		{
			name:   "missing required key",
			mutate: func(m map[string]any) { delete(obj(m, "crime_analysis"), "summary") },
			path:   "crime_analysis.summary",
			reason: "missing",
		},
		{
			name:   "missing top-level section",
			mutate: func(m map[string]any) { delete(m, "recommendation") },
			path:   "recommendation",
			reason: "missing",
		},
		{
			name:   "enum outside closed set",
			mutate: func(m map[string]any) { obj(m, "crime_analysis")["risk_level"] = "EXTREME" },
			path:   "crime_analysis.risk_level",
			reason: `"EXTREME" is not one of`,
		},
		{
			name:   "number as string",
			mutate: func(m map[string]any) { obj(m, "property_overview")["units"] = "24" },
			path:   "property_overview.units",
			reason: "expected number",
		},
		{
			name:   "null in non-nullable",
			mutate: func(m map[string]any) { obj(m, "crime_analysis")["risk_score"] = nil },
			path:   "crime_analysis.risk_score",
			reason: "must not be null",
		},
		{
			name: "short trend",
			mutate: func(m map[string]any) {
				m["crime_trend_5year"] = m["crime_trend_5year"].([]any)[:4]
			},
			path:   "crime_trend_5year",
			reason: "exactly 5",
		},
		{
			name: "extra bedroom row",
			mutate: func(m map[string]any) {
				md := obj(m, "market_data")
				rows := md["rental_rates_by_bedroom"].([]any)
				md["rental_rates_by_bedroom"] = append(rows, rows[0])
			},
			path:   "market_data.rental_rates_by_bedroom",
			reason: "exactly 4",
		},
		{
			name: "fractional trend year",
			mutate: func(m map[string]any) {
				m["crime_trend_5year"].([]any)[0].(map[string]any)["year"] = 2019.5
			},
			path:   "crime_trend_5year[0].year",
			reason: "expected integer",
		},
		{
			name:   "sentinel outside union",
			mutate: func(m map[string]any) { obj(m, "property_overview")["property_type"] = NotFound },
			path:   "property_overview.property_type",
			reason: NotFound,
		},
		{
			name: "sentinel inside list",
			mutate: func(m map[string]any) {
				obj(m, "recommendation")["key_concerns"] = []any{"ok", NotFound}
			},
			path:   "recommendation.key_concerns[1]",
			reason: NotFound,
		},
		{
			name: "nested severity enum",
			mutate: func(m map[string]any) {
				obj(m, "crime_breakdown_2023", "violent_crimes", "robbery")["severity"] = "Extreme"
			},
			path:   "crime_breakdown_2023.violent_crimes.robbery.severity",
			reason: "is not one of",
		},
		{
			name:   "list replaced by string",
			mutate: func(m map[string]any) { m["security_recommendations"] = "lock doors" },
			path:   "security_recommendations",
			reason: "expected array",
		},
		{
			name:   "bool as string",
			mutate: func(m map[string]any) { obj(m, "property_overview")["is_hud_property"] = "no" },
			path:   "property_overview.is_hud_property",
			reason: "expected boolean",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateJSON(mutateFixture(t, tc.mutate))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Path != tc.path {
				t.Fatalf("path got %q, want %q", verr.Path, tc.path)
			}
			if !strings.Contains(verr.Reason, tc.reason) {
				t.Fatalf("reason %q does not mention %q", verr.Reason, tc.reason)
			}
		})
	}
}

func TestValidateAcceptsNullableLeavesAndExtraKeys(t *testing.T) {
	data := mutateFixture(t, func(m map[string]any) {
		po := obj(m, "property_overview")
		po["units"] = nil
		po["is_hud_property"] = nil
		po["listing_url"] = "https://example.com/listing"
		obj(m, "market_data")["vacancy_trend"] = nil
		obj(m, "economic_indicators")["economic_growth_trend"] = nil
		obj(m, "crime_analysis")["victimization_chance"] = NotFound
		m["model_notes"] = map[string]any{"source": "census"}
	})
	a, err := ValidateJSON(data)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if a.PropertyOverview.Units != nil || a.MarketData.VacancyTrend != nil {
		t.Fatalf("expected null leaves, got %+v", a)
	}
	if a.CrimeAnalysis.VictimizationChance != NotFound {
		t.Fatalf("unexpected victimization chance %q", a.CrimeAnalysis.VictimizationChance)
	}
}

func TestValidateJSONSyntaxErrorIsNotValidationError(t *testing.T) {
	for _, in := range []string{"", "{", `{"property_overview": }`, `{} {}`} {
		_, err := ValidateJSON([]byte(in))
		if err == nil {
			t.Fatalf("expected error for %q", in)
		}
		var verr *ValidationError
		if errors.As(err, &verr) {
			t.Fatalf("syntax error for %q reported as validation error: %v", in, err)
		}
	}
}

func TestValidateRejectsNonObjectRoot(t *testing.T) {
	_, err := ValidateJSON([]byte(`[1,2,3]`))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path != "" {
		t.Fatalf("expected root validation error, got %v", err)
	}
	if !strings.HasPrefix(verr.Error(), "(root): expected object") {
		t.Fatalf("unexpected message %q", verr.Error())
	}
}

func TestValidateAcceptsPlainFloatDecoding(t *testing.T) {
	var v any
	if err := json.Unmarshal(loadFixture(t), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestFallbackConformsToSchema(t *testing.T) {
	for _, address := range []string{"1 Main St, Springfield, IL", NotFound, ""} {
		blob, err := json.Marshal(Fallback(address))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if _, err := ValidateJSON(blob); err != nil {
			t.Fatalf("fallback for %q does not validate: %v", address, err)
		}
	}
}
