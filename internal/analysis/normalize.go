package analysis

import (
	"encoding/json"
	"math"
	"strings"
)

// Outcome records how Normalize arrived at its result. It never changes the
// shape of the analysis, only explains it.
type Outcome string

const (
	OutcomeValid       Outcome = "valid"
	OutcomeDeclined    Outcome = "declined"
	OutcomeUnparseable Outcome = "unparseable"
	OutcomeInvalid     Outcome = "invalid"
)

// Result is a schema-valid analysis plus the reason it was produced.
type Result struct {
	Analysis PropertyAnalysis
	Outcome  Outcome
	Detail   string
}

// Fallback reports whether the analysis is the conservative fallback.
func (r Result) Fallback() bool { return r.Outcome != OutcomeValid }

// Normalize turns raw model text into a schema-valid analysis. It never
// fails: declined, unparseable and invalid payloads all yield
// Fallback(address).
func Normalize(raw, address string) Result {
	payload := StripCodeFences(raw)
	if declined(payload) {
		return Result{Analysis: Fallback(address), Outcome: OutcomeDeclined, Detail: "model returned " + NotFound}
	}
	v, err := decodeJSON([]byte(payload))
	if err != nil {
		return Result{Analysis: Fallback(address), Outcome: OutcomeUnparseable, Detail: err.Error()}
	}
	a, err := Validate(v)
	if err != nil {
		return Result{Analysis: Fallback(address), Outcome: OutcomeInvalid, Detail: err.Error()}
	}
	Clamp(&a)
	canonicalizeTrend(&a)
	canonicalizeBedrooms(&a)
	return Result{Analysis: a, Outcome: OutcomeValid}
}

// StripCodeFences returns the text between the first and last ``` delimiter,
// without a leading language tag. Text without fences is only trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	first := strings.Index(s, "```")
	if first < 0 {
		return s
	}
	last := strings.LastIndex(s, "```")
	var inner string
	if last > first {
		inner = s[first+3 : last]
	} else if first == 0 {
		// Opening fence with the closing one cut off.
		inner = s[3:]
	} else {
		return s
	}
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		tag := strings.TrimSpace(inner[:nl])
		if tag == "" || isLanguageTag(tag) {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// declined reports whether the payload as a whole is the not-found sentinel.
// The sentinel appearing inside an otherwise valid report is not a decline.
func declined(text string) bool {
	switch text {
	case NotFound, `"` + NotFound + `"`:
		return true
	}
	if !strings.HasPrefix(text, "{") {
		return false
	}
	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &probe); err != nil || probe.Error == nil {
		return false
	}
	return strings.TrimSpace(*probe.Error) == NotFound
}

// Clamp forces investment ratings into [1,10] and risk_score into [1,5].
func Clamp(a *PropertyAnalysis) {
	r := &a.InvestmentRatings
	r.CapRateScore = clamp(r.CapRateScore, RatingMin, RatingMax)
	r.MarketStabilityScore = clamp(r.MarketStabilityScore, RatingMin, RatingMax)
	r.CrimeSafetyScore = clamp(r.CrimeSafetyScore, RatingMin, RatingMax)
	r.OverallScore = clamp(r.OverallScore, RatingMin, RatingMax)
	a.CrimeAnalysis.RiskScore = clamp(a.CrimeAnalysis.RiskScore, RiskScoreMin, RiskScoreMax)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// canonicalizeTrend rewrites the trend as 2019..2023 in order. Entries are
// matched by year; a year the model did not report gets a null total.
func canonicalizeTrend(a *PropertyAnalysis) {
	byYear := make(map[int]*float64, TrendYears)
	for _, p := range a.CrimeTrend5Year {
		if _, seen := byYear[p.Year]; !seen {
			byYear[p.Year] = p.TotalCrimes
		}
	}
	for i := range a.CrimeTrend5Year {
		year := TrendFirstYear + i
		a.CrimeTrend5Year[i] = CrimeTrendYear{Year: year, TotalCrimes: byYear[year]}
	}
}

// canonicalizeBedrooms reorders and relabels bedroom rows when every row
// maps to a distinct canonical type. Ambiguous labels leave the rows as
// reported.
func canonicalizeBedrooms(a *PropertyAnalysis) {
	rows := a.MarketData.RentalRatesByBedroom
	var out [BedroomTypes]BedroomRate
	var filled [BedroomTypes]bool
	for _, row := range rows {
		slot := bedroomSlot(row.Type)
		if slot < 0 || filled[slot] {
			return
		}
		row.Type = BedroomLabels[slot]
		out[slot] = row
		filled[slot] = true
	}
	a.MarketData.RentalRatesByBedroom = out
}

func bedroomSlot(label string) int {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "studio"), strings.HasPrefix(l, "0"), strings.Contains(l, "efficiency"):
		return 0
	case strings.HasPrefix(l, "1"), strings.HasPrefix(l, "one"):
		return 1
	case strings.HasPrefix(l, "2"), strings.HasPrefix(l, "two"):
		return 2
	case strings.HasPrefix(l, "3"), strings.HasPrefix(l, "three"):
		return 3
	}
	return -1
}
