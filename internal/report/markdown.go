// Package report renders a completed property analysis as Markdown, HTML and
// PDF.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joelkehle/property-analysis/internal/analysis"
)

const notAvailable = "N/A"

// Markdown renders the analysis as a GFM document. Null values print as N/A.
func Markdown(a analysis.PropertyAnalysis) string {
	var b strings.Builder
	po := a.PropertyOverview
	fmt.Fprintf(&b, "# Property Analysis: %s\n\n", escape(po.Address))

	rec := a.Recommendation
	fmt.Fprintf(&b, "**Recommendation:** %s (confidence %s%%)\n\n", rec.InvestDecision, plain(rec.ConfidenceLevel))
	if s := strings.TrimSpace(rec.ExecutiveSummary); s != "" {
		b.WriteString(escape(s) + "\n\n")
	}

	b.WriteString("## Property Overview\n\n")
	table(&b, []string{"Field", "Value"}, [][]string{
		{"Property type", escape(po.PropertyType)},
		{"Units", num(po.Units)},
		{"Year built", year(po.YearBuilt)},
		{"Purchase price", money(po.PurchasePrice)},
		{"Price per unit", money(po.PricePerUnit)},
		{"Cap rate", pct(po.CapRate)},
		{"Occupancy", pct(po.OccupancyRate)},
		{"HUD property", yesNo(po.IsHUDProperty)},
	})

	r := a.InvestmentRatings
	b.WriteString("## Investment Ratings\n\n")
	table(&b, []string{"Rating", "Score (1-10)"}, [][]string{
		{"Cap rate", plain(r.CapRateScore)},
		{"Market stability", plain(r.MarketStabilityScore)},
		{"Crime safety", plain(r.CrimeSafetyScore)},
		{"Overall", plain(r.OverallScore)},
	})

	ca := a.CrimeAnalysis
	b.WriteString("## Crime Analysis\n\n")
	fmt.Fprintf(&b, "**Risk level:** %s (score %s of 5). **Victimization chance:** %s. **Year-over-year change:** %s.\n\n",
		ca.RiskLevel, plain(ca.RiskScore), sentinel(ca.VictimizationChance), pct(ca.YoYCrimeChange))
	if s := strings.TrimSpace(ca.Summary); s != "" {
		b.WriteString(escape(s) + "\n\n")
	}
	table(&b, []string{"Rate per 1,000", "Local", "State", "National"}, [][]string{
		{"Total", num(ca.TotalCrimeRate), num(ca.StateAvgTotal), num(ca.NationalAvgTotal)},
		{"Violent", num(ca.ViolentCrimeRate), num(ca.StateAvgViolent), num(ca.NationalAvgViolent)},
		{"Property", num(ca.PropertyCrimeRate), num(ca.StateAvgProperty), num(ca.NationalAvgProperty)},
		{"Theft", num(ca.TheftRate), num(ca.StateAvgTheft), num(ca.NationalAvgTheft)},
	})

	cb := a.CrimeBreakdown2023
	b.WriteString("### 2023 Crime Breakdown\n\n")
	fmt.Fprintf(&b, "Total crimes: %s. Violent: %s. Property: %s.\n\n",
		num(cb.TotalCrimes), num(cb.ViolentCrimes.Total), num(cb.PropertyCrimes.Total))
	table(&b, []string{"Offense", "Count", "vs National", "Severity"}, [][]string{
		categoryRow("Murder", cb.ViolentCrimes.Murder),
		categoryRow("Rape", cb.ViolentCrimes.Rape),
		categoryRow("Robbery", cb.ViolentCrimes.Robbery),
		categoryRow("Aggravated assault", cb.ViolentCrimes.AggravatedAssault),
		categoryRow("Theft / larceny", cb.PropertyCrimes.TheftLarceny),
		categoryRow("Motor vehicle theft", cb.PropertyCrimes.MotorVehicleTheft),
		categoryRow("Burglary", cb.PropertyCrimes.Burglary),
	})

	b.WriteString("### Five-Year Trend\n\n")
	trend := make([][]string, 0, len(a.CrimeTrend5Year))
	for _, p := range a.CrimeTrend5Year {
		trend = append(trend, []string{strconv.Itoa(p.Year), num(p.TotalCrimes)})
	}
	table(&b, []string{"Year", "Total crimes"}, trend)

	d := a.CrimeTypeDistribution
	b.WriteString("### Crime Type Distribution\n\n")
	table(&b, []string{"Type", "Share"}, [][]string{
		{"Theft / larceny", pct(d.TheftLarcenyPercentage)},
		{"Aggravated assault", pct(d.AggravatedAssaultPercentage)},
		{"Motor vehicle theft", pct(d.MotorVehicleTheftPercentage)},
		{"Burglary", pct(d.BurglaryPercentage)},
		{"Rape", pct(d.RapePercentage)},
		{"Robbery", pct(d.RobberyPercentage)},
		{"Murder", pct(d.MurderPercentage)},
	})
	bullets(&b, "### Security Recommendations", a.SecurityRecommendations)

	md := a.MarketData
	b.WriteString("## Market Data\n\n")
	fmt.Fprintf(&b, "Median rent %s, rent trend %s YoY, vacancy %s (%s), demand %s.\n\n",
		money(md.MedianRent), pct(md.RentTrendYoY), pct(md.VacancyRate), enum(md.VacancyTrend), enum(md.MarketDemand))
	rows := make([][]string, 0, len(md.RentalRatesByBedroom))
	for _, row := range md.RentalRatesByBedroom {
		rows = append(rows, []string{escape(row.Type), money(row.AvgRent), num(row.AvgSqft)})
	}
	table(&b, []string{"Unit type", "Avg rent", "Avg sq ft"}, rows)

	dr := a.DiningRetailAnalysis
	rd := dr.RestaurantDistribution
	b.WriteString("## Dining & Retail\n\n")
	fmt.Fprintf(&b, "%s restaurants (%s per 1,000 residents). Market gap: %s.\n\n",
		num(dr.TotalRestaurants), num(dr.RestaurantsPer1000), sentinel(dr.MarketGap))
	table(&b, []string{"Category", "Count"}, [][]string{
		{"American", num(rd.American)},
		{"Fast food chains", num(rd.FastFoodChains)},
		{"Bars / pubs", num(rd.BarsPubs)},
		{"Asian", num(rd.Asian)},
		{"Mexican", num(rd.Mexican)},
		{"Other", num(rd.Other)},
	})
	if len(dr.DominantCategories) > 0 {
		fmt.Fprintf(&b, "Dominant categories: %s.\n\n", escape(strings.Join(dr.DominantCategories, ", ")))
	}

	ei := a.EconomicIndicators
	b.WriteString("## Economic Indicators\n\n")
	table(&b, []string{"Indicator", "Value"}, [][]string{
		{"Population", num(ei.Population)},
		{"Median household income", money(ei.MedianHouseholdIncome)},
		{"Unemployment", pct(ei.UnemploymentRate)},
		{"Poverty", pct(ei.PovertyRate)},
		{"Median home value", money(ei.MedianHomeValue)},
		{"Cost of living index", num(ei.CostOfLivingIndex)},
		{"Growth trend", enum(ei.EconomicGrowthTrend)},
	})
	bullets(&b, "### Major Employers", ei.MajorEmployers)

	b.WriteString("## Recommendation\n\n")
	fmt.Fprintf(&b, "**%s**\n\n", rec.InvestDecision)
	bullets(&b, "### Key Strengths", rec.KeyStrengths)
	bullets(&b, "### Key Concerns", rec.KeyConcerns)
	bullets(&b, "### Required Actions", rec.RequiredActions)
	return b.String()
}

func table(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func bullets(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(heading + "\n\n")
	for _, item := range items {
		b.WriteString("- " + escape(item) + "\n")
	}
	b.WriteString("\n")
}

func categoryRow(name string, c analysis.CrimeCategory) []string {
	return []string{name, num(c.Count), pct(c.VsNational), enum(c.Severity)}
}

// escape keeps model text from breaking table cells.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func num(p *float64) string {
	if p == nil {
		return notAvailable
	}
	return groupThousands(plain(*p))
}

func year(p *float64) string {
	if p == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*p, 'f', 0, 64)
}

func money(p *float64) string {
	if p == nil {
		return notAvailable
	}
	s := groupThousands(strconv.FormatFloat(*p, 'f', 0, 64))
	if strings.HasPrefix(s, "-") {
		return "-$" + s[1:]
	}
	return "$" + s
}

func pct(p *float64) string {
	if p == nil {
		return notAvailable
	}
	return plain(*p) + "%"
}

func yesNo(p *bool) string {
	switch {
	case p == nil:
		return notAvailable
	case *p:
		return "Yes"
	}
	return "No"
}

func enum[T ~string](p *T) string {
	if p == nil {
		return notAvailable
	}
	return string(*p)
}

func sentinel(s string) string {
	if s == analysis.NotFound || strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return escape(s)
}

// groupThousands inserts commas into the integer part of a decimal string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}
