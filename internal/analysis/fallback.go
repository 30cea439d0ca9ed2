package analysis

// Fallback returns the conservative analysis served when the model declines
// or produces output that cannot be validated. Every nullable leaf is null,
// ratings sit at the floor and the recommendation is HOLD. risk_score is the
// midpoint of the 1..5 range to agree with risk_level MODERATE.
func Fallback(address string) PropertyAnalysis {
	a := PropertyAnalysis{
		PropertyOverview: PropertyOverview{
			Address:      address,
			PropertyType: "Unknown",
		},
		InvestmentRatings: InvestmentRatings{
			CapRateScore:         RatingMin,
			MarketStabilityScore: RatingMin,
			CrimeSafetyScore:     RatingMin,
			OverallScore:         RatingMin,
		},
		CrimeAnalysis: CrimeAnalysis{
			RiskLevel:           RiskModerate,
			RiskScore:           3,
			VictimizationChance: NotFound,
			Summary:             "Crime data could not be verified for this address. Consult local police department records and FBI Uniform Crime Reporting statistics directly.",
		},
		SecurityRecommendations: []string{
			"Request crime statistics from the local police department",
			"Commission an on-site security assessment before committing capital",
		},
		DiningRetailAnalysis: DiningRetailAnalysis{
			MarketGap:          NotFound,
			DominantCategories: []string{},
		},
		EconomicIndicators: EconomicIndicators{
			MajorEmployers: []string{},
		},
		Recommendation: Recommendation{
			InvestDecision:  DecisionHold,
			ConfidenceLevel: 0,
			KeyStrengths:    []string{},
			KeyConcerns: []string{
				"Insufficient verified data for this address",
				"Property details could not be confirmed from public sources",
			},
			RequiredActions: []string{
				"Verify the property address and ownership records",
				"Obtain the offering memorandum and rent roll from the seller",
				"Pull crime, rent and vacancy data from primary sources",
			},
			ExecutiveSummary: "An automated analysis could not be produced from verifiable public data. Treat this property as unevaluated and complete manual due diligence before making a decision.",
		},
	}
	for i := range a.CrimeTrend5Year {
		a.CrimeTrend5Year[i].Year = TrendFirstYear + i
	}
	for i, label := range BedroomLabels {
		a.MarketData.RentalRatesByBedroom[i].Type = label
	}
	return a
}
