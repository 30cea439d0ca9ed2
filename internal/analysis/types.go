package analysis

// NotFound is the sentinel the model uses in place of a value it could not
// verify. It is only legal in fields that explicitly union it.
const NotFound = "DATA_NOT_FOUND"

const (
	TrendFirstYear = 2019
	TrendYears     = 5
	BedroomTypes   = 4
)

// Rating bounds. Values outside these ranges are clamped, never rejected.
const (
	RatingMin    = 1.0
	RatingMax    = 10.0
	RiskScoreMin = 1.0
	RiskScoreMax = 5.0
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY HIGH"
)

type Severity string

const (
	SeverityVeryLow  Severity = "Very Low"
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
	SeverityVeryHigh Severity = "Very High"
)

type VacancyTrend string

const (
	VacancyRising  VacancyTrend = "Rising"
	VacancyStable  VacancyTrend = "Stable"
	VacancyFalling VacancyTrend = "Falling"
)

type MarketDemand string

const (
	DemandWeak       MarketDemand = "Weak"
	DemandModerate   MarketDemand = "Moderate"
	DemandStrong     MarketDemand = "Strong"
	DemandVeryStrong MarketDemand = "Very Strong"
)

type GrowthTrend string

const (
	GrowthDeclining      GrowthTrend = "Declining"
	GrowthStable         GrowthTrend = "Stable"
	GrowthGrowing        GrowthTrend = "Growing"
	GrowthRapidlyGrowing GrowthTrend = "Rapidly Growing"
)

type InvestDecision string

const (
	DecisionStrongBuy   InvestDecision = "STRONG BUY"
	DecisionBuy         InvestDecision = "BUY"
	DecisionHold        InvestDecision = "HOLD"
	DecisionAvoid       InvestDecision = "AVOID"
	DecisionStrongAvoid InvestDecision = "STRONG AVOID"
)

// BedroomLabels is the canonical order of market_data.rental_rates_by_bedroom.
var BedroomLabels = [BedroomTypes]string{"Studio", "1 Bedroom", "2 Bedroom", "3 Bedroom"}

// PropertyAnalysis is the report returned to callers. Field names and enum
// strings are a wire compatibility surface; nullable leaves are pointers and
// always serialize, as null when unknown.
type PropertyAnalysis struct {
	PropertyOverview        PropertyOverview           `json:"property_overview"`
	InvestmentRatings       InvestmentRatings          `json:"investment_ratings"`
	CrimeAnalysis           CrimeAnalysis              `json:"crime_analysis"`
	CrimeBreakdown2023      CrimeBreakdown             `json:"crime_breakdown_2023"`
	CrimeTrend5Year         [TrendYears]CrimeTrendYear `json:"crime_trend_5year"`
	CrimeTypeDistribution   CrimeTypeDistribution      `json:"crime_type_distribution"`
	SecurityRecommendations []string                   `json:"security_recommendations"`
	MarketData              MarketData                 `json:"market_data"`
	DiningRetailAnalysis    DiningRetailAnalysis       `json:"dining_retail_analysis"`
	EconomicIndicators      EconomicIndicators         `json:"economic_indicators"`
	Recommendation          Recommendation             `json:"recommendation"`
}

type PropertyOverview struct {
	Address       string   `json:"address"`
	PropertyType  string   `json:"property_type"`
	Units         *float64 `json:"units"`
	YearBuilt     *float64 `json:"year_built"`
	PurchasePrice *float64 `json:"purchase_price"`
	PricePerUnit  *float64 `json:"price_per_unit"`
	CapRate       *float64 `json:"cap_rate"`
	OccupancyRate *float64 `json:"occupancy_rate"`
	IsHUDProperty *bool    `json:"is_hud_property"`
}

type InvestmentRatings struct {
	CapRateScore         float64 `json:"cap_rate_score"`
	MarketStabilityScore float64 `json:"market_stability_score"`
	CrimeSafetyScore     float64 `json:"crime_safety_score"`
	OverallScore         float64 `json:"overall_score"`
}

// CrimeAnalysis rates are per 1,000 residents. VictimizationChance is
// "1 in N" or NotFound.
type CrimeAnalysis struct {
	RiskLevel           RiskLevel `json:"risk_level"`
	RiskScore           float64   `json:"risk_score"`
	TotalCrimeRate      *float64  `json:"total_crime_rate"`
	ViolentCrimeRate    *float64  `json:"violent_crime_rate"`
	PropertyCrimeRate   *float64  `json:"property_crime_rate"`
	TheftRate           *float64  `json:"theft_rate"`
	NationalAvgTotal    *float64  `json:"national_avg_total"`
	NationalAvgViolent  *float64  `json:"national_avg_violent"`
	NationalAvgProperty *float64  `json:"national_avg_property"`
	NationalAvgTheft    *float64  `json:"national_avg_theft"`
	StateAvgTotal       *float64  `json:"state_avg_total"`
	StateAvgViolent     *float64  `json:"state_avg_violent"`
	StateAvgProperty    *float64  `json:"state_avg_property"`
	StateAvgTheft       *float64  `json:"state_avg_theft"`
	VictimizationChance string    `json:"victimization_chance"`
	YoYCrimeChange      *float64  `json:"yoy_crime_change"`
	Summary             string    `json:"summary"`
}

type CrimeCategory struct {
	Count      *float64  `json:"count"`
	VsNational *float64  `json:"vs_national"`
	Severity   *Severity `json:"severity"`
}

type ViolentCrimes struct {
	Total             *float64      `json:"total"`
	Murder            CrimeCategory `json:"murder"`
	Rape              CrimeCategory `json:"rape"`
	Robbery           CrimeCategory `json:"robbery"`
	AggravatedAssault CrimeCategory `json:"aggravated_assault"`
}

type PropertyCrimes struct {
	Total             *float64      `json:"total"`
	TheftLarceny      CrimeCategory `json:"theft_larceny"`
	MotorVehicleTheft CrimeCategory `json:"motor_vehicle_theft"`
	Burglary          CrimeCategory `json:"burglary"`
}

type CrimeBreakdown struct {
	TotalCrimes    *float64       `json:"total_crimes"`
	ViolentCrimes  ViolentCrimes  `json:"violent_crimes"`
	PropertyCrimes PropertyCrimes `json:"property_crimes"`
}

type CrimeTrendYear struct {
	Year        int      `json:"year"`
	TotalCrimes *float64 `json:"total_crimes"`
}

type CrimeTypeDistribution struct {
	TheftLarcenyPercentage      *float64 `json:"theft_larceny_percentage"`
	AggravatedAssaultPercentage *float64 `json:"aggravated_assault_percentage"`
	MotorVehicleTheftPercentage *float64 `json:"motor_vehicle_theft_percentage"`
	BurglaryPercentage          *float64 `json:"burglary_percentage"`
	RapePercentage              *float64 `json:"rape_percentage"`
	RobberyPercentage           *float64 `json:"robbery_percentage"`
	MurderPercentage            *float64 `json:"murder_percentage"`
}

type BedroomRate struct {
	Type    string   `json:"type"`
	AvgRent *float64 `json:"avg_rent"`
	AvgSqft *float64 `json:"avg_sqft"`
}

type MarketData struct {
	MedianRent           *float64                  `json:"median_rent"`
	RentTrendYoY         *float64                  `json:"rent_trend_yoy"`
	VacancyRate          *float64                  `json:"vacancy_rate"`
	VacancyTrend         *VacancyTrend             `json:"vacancy_trend"`
	MarketDemand         *MarketDemand             `json:"market_demand"`
	RentalRatesByBedroom [BedroomTypes]BedroomRate `json:"rental_rates_by_bedroom"`
}

type RestaurantDistribution struct {
	American       *float64 `json:"american"`
	FastFoodChains *float64 `json:"fast_food_chains"`
	BarsPubs       *float64 `json:"bars_pubs"`
	Asian          *float64 `json:"asian"`
	Mexican        *float64 `json:"mexican"`
	Other          *float64 `json:"other"`
}

// DiningRetailAnalysis.MarketGap is free text or NotFound.
type DiningRetailAnalysis struct {
	TotalRestaurants       *float64               `json:"total_restaurants"`
	RestaurantsPer1000     *float64               `json:"restaurants_per_1000"`
	RestaurantDistribution RestaurantDistribution `json:"restaurant_distribution"`
	MarketGap              string                 `json:"market_gap"`
	DominantCategories     []string               `json:"dominant_categories"`
}

type EconomicIndicators struct {
	Population            *float64     `json:"population"`
	MedianHouseholdIncome *float64     `json:"median_household_income"`
	UnemploymentRate      *float64     `json:"unemployment_rate"`
	PovertyRate           *float64     `json:"poverty_rate"`
	MedianHomeValue       *float64     `json:"median_home_value"`
	CostOfLivingIndex     *float64     `json:"cost_of_living_index"`
	MajorEmployers        []string     `json:"major_employers"`
	EconomicGrowthTrend   *GrowthTrend `json:"economic_growth_trend"`
}

type Recommendation struct {
	InvestDecision   InvestDecision `json:"invest_decision"`
	ConfidenceLevel  float64        `json:"confidence_level"`
	KeyStrengths     []string       `json:"key_strengths"`
	KeyConcerns      []string       `json:"key_concerns"`
	RequiredActions  []string       `json:"required_actions"`
	ExecutiveSummary string         `json:"executive_summary"`
}
