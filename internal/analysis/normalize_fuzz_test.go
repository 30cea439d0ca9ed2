package analysis

import (
	"encoding/json"
	"os"
	"testing"
)

func FuzzNormalizeIsTotal(f *testing.F) {
	if blob, err := os.ReadFile("testdata/valid_analysis.json"); err == nil {
		f.Add(string(blob), testAddress)
		f.Add("```json\n"+string(blob)+"\n```", testAddress)
	}
	f.Add(NotFound, testAddress)
	f.Add(`{"error":"DATA_NOT_FOUND"}`, "")
	f.Add(`{"property_overview":{}}`, testAddress)
	f.Add("```", "x")
	f.Add(`[1,2,3]`, "x")
	f.Add(`{"crime_trend_5year":[{"year":2019.5}]}`, "x")

	f.Fuzz(func(t *testing.T, raw, address string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Normalize panicked: %v", r)
			}
		}()
		res := Normalize(raw, address)
		switch res.Outcome {
		case OutcomeValid, OutcomeDeclined, OutcomeUnparseable, OutcomeInvalid:
		default:
			t.Fatalf("unexpected outcome %q", res.Outcome)
		}
		blob, err := json.Marshal(res.Analysis)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if _, err := ValidateJSON(blob); err != nil {
			t.Fatalf("normalized analysis does not validate: %v", err)
		}
		r := res.Analysis.InvestmentRatings
		for _, v := range []float64{r.CapRateScore, r.MarketStabilityScore, r.CrimeSafetyScore, r.OverallScore} {
			if v < RatingMin || v > RatingMax {
				t.Fatalf("rating %v out of range", v)
			}
		}
		if s := res.Analysis.CrimeAnalysis.RiskScore; s < RiskScoreMin || s > RiskScoreMax {
			t.Fatalf("risk score %v out of range", s)
		}
	})
}
