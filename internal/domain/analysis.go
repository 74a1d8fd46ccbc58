package domain

import "time"

// ============================================================
// Simulation collaborator: POST /api/simulate-personal
// ============================================================

// SimulationUserData is the user_data object of a simulation request.
type SimulationUserData struct {
	Location                string                  `json:"location"`
	WasteTypes              map[WasteTypeID]float64 `json:"waste_types"`
	DailyEnergyNeedsKWh     float64                 `json:"daily_energy_needs_kwh"`
	CurrentEnergyCostPerKWh float64                 `json:"current_energy_cost_per_kwh"`
	CompanyName             string                  `json:"company_name,omitempty"`
	CurrentProcessingMethod string                  `json:"current_processing_method,omitempty"`
}

// SimulationRequest is sent to the prediction collaborator.
type SimulationRequest struct {
	UserType        UserType           `json:"user_type"`
	UserData        SimulationUserData `json:"user_data"`
	SimulationDays  int                `json:"simulation_days"`
	TemperatureC    float64            `json:"temperature_c"`
	HumidityPercent float64            `json:"humidity_percent"`
	RainfallMM      float64            `json:"rainfall_mm"`
	IncludeNoise    bool               `json:"include_noise"`
}

// SimulationResponse holds the fields the analyzer consumes. Pointers
// distinguish an absent field from a zero value; absent required fields
// reject the whole response.
type SimulationResponse struct {
	SimulationID string `json:"simulation_id"`
	Results      *struct {
		DailyAverages *struct {
			EnergyGeneratedKWh *float64 `json:"energy_generated_kwh"`
			Co2AvoidedKg       *float64 `json:"co2_avoided_kg"`
		} `json:"daily_averages"`
	} `json:"results"`
	PersonalImpact *struct {
		DailySavingsUSD *float64 `json:"daily_savings_usd"`
		TreesEquivalent *float64 `json:"trees_equivalent"`
		CarsEquivalent  *float64 `json:"cars_equivalent"`
	} `json:"personal_impact"`
}

// SimulationResult is a validated simulation response.
type SimulationResult struct {
	SimulationID       string
	EnergyGeneratedKWh float64
	Co2AvoidedKg       float64
	DailySavingsUSD    float64
	TreesEquivalent    float64
	CarsEquivalent     float64
}

// ============================================================
// Analyzer: POST /v1/analyze
// ============================================================

// AnalysisSource tags where the numbers of an analysis came from.
type AnalysisSource string

const (
	SourceSimulation AnalysisSource = "simulation"
	SourceFallback   AnalysisSource = "fallback"
)

const (
	LiveConfidence     = 0.92
	FallbackConfidence = 0.88
)

// Conditions are the environmental parameters passed to the simulation.
type Conditions struct {
	TemperatureC    float64 `json:"temperatureC"`
	HumidityPercent float64 `json:"humidityPercent"`
	RainfallMM      float64 `json:"rainfallMm"`
}

// DefaultConditions mirror the collaborator's own defaults.
var DefaultConditions = Conditions{TemperatureC: 25, HumidityPercent: 60, RainfallMM: 0}

// AnalysisRequest is the body for POST /v1/analyze. Fields left empty are
// filled from the stored profile.
type AnalysisRequest struct {
	UserType         UserType                `json:"userType,omitempty" validate:"omitempty,oneof=individual company"`
	Location         string                  `json:"location,omitempty"`
	WasteTypes       map[WasteTypeID]float64 `json:"wasteTypes,omitempty" validate:"omitempty,dive,keys,oneof=food_scraps market_waste agricultural_biomass animal_waste wood_biomass,endkeys,gte=0"`
	DailyEnergyNeeds float64                 `json:"dailyEnergyNeeds,omitempty" validate:"gte=0"`
	Description      string                  `json:"description,omitempty"`
	ImageURL         string                  `json:"imageUrl,omitempty" validate:"omitempty,uri"`
	Conditions       *Conditions             `json:"conditions,omitempty"`
	Record           bool                    `json:"record,omitempty"`
}

// AnalysisResult is a tagged analysis outcome with required numeric fields.
type AnalysisResult struct {
	Source           AnalysisSource          `json:"source"`
	SimulationID     string                  `json:"simulationId,omitempty"`
	WasteTypes       map[WasteTypeID]float64 `json:"wasteTypes"`
	TotalWeight      float64                 `json:"totalWeight"`
	EnergyGenerated  float64                 `json:"energyGenerated"`
	Co2Avoided       float64                 `json:"co2Avoided"`
	CostSavings      float64                 `json:"costSavings"`
	TreesEquivalent  int                     `json:"treesEquivalent"`
	CarsEquivalent   float64                 `json:"carsEquivalent"`
	Confidence       float64                 `json:"confidence"`
	ConversionMethod ConversionMethod        `json:"conversionMethod"`
	Recommendations  []string                `json:"recommendations"`
	AnalyzedAt       time.Time               `json:"analyzedAt"`
	EntryID          string                  `json:"entryId,omitempty"`
}

// Phase is a named step of the analyzer's progress sequence.
type Phase string

const (
	PhaseUpload    Phase = "uploading"
	PhaseDetect    Phase = "detecting"
	PhaseSimulate  Phase = "simulating"
	PhaseRecommend Phase = "recommending"
)

// AnalysisPhases is the ordered progress sequence reported by the analyzer.
var AnalysisPhases = []Phase{PhaseUpload, PhaseDetect, PhaseSimulate, PhaseRecommend}

// AnalysisMetrics is the snapshot returned by GET /v1/metrics/analysis.
type AnalysisMetrics struct {
	TotalAnalyses     int64   `json:"totalAnalyses"`
	LiveAnalyses      int64   `json:"liveAnalyses"`
	FallbackAnalyses  int64   `json:"fallbackAnalyses"`
	FallbackRate      float64 `json:"fallbackRate"`
	CacheHitRate      float64 `json:"cacheHitRate"`
	PersistenceErrors int64   `json:"persistenceErrors"`
	Period            string  `json:"period"`
}
