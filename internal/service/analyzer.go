// Package service holds the orchestration that sits between the HTTP layer
// and the stores: the waste analyzer and the built-in authenticator.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/impact"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/resilience"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("service/analyzer")

// flightTimeout bounds a shared simulation call once it is detached from
// the request that started it.
const flightTimeout = 30 * time.Second

// AnalyzerConfig tunes the analyzer.
type AnalyzerConfig struct {
	EnergyCostPerKWh float64
	SimulationDays   int
	PhaseDelay       time.Duration
	MaxConcurrency   int
}

// PhaseFunc is told when the analyzer enters each progress phase.
type PhaseFunc func(domain.Phase)

// Analyzer turns a waste mix into energy, CO2 and savings figures. It asks
// the simulation collaborator first and falls back to the linear estimate
// on any failure, so collaborator trouble never surfaces as an error.
type Analyzer struct {
	simulator port.Simulator
	profiles  port.ProfileReader
	recorder  port.EntryRecorder
	cache     port.Cache[*domain.AnalysisResult]
	bulkhead  *resilience.Bulkhead
	flight    singleflight.Group
	cfg       AnalyzerConfig
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnalyzer creates the analyzer with all dependencies injected.
func NewAnalyzer(
	simulator port.Simulator,
	profiles port.ProfileReader,
	recorder port.EntryRecorder,
	cache port.Cache[*domain.AnalysisResult],
	cfg AnalyzerConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Analyzer {
	if cfg.SimulationDays <= 0 {
		cfg.SimulationDays = 7
	}
	if cfg.EnergyCostPerKWh <= 0 {
		cfg.EnergyCostPerKWh = impact.EnergyPriceUSD
	}
	return &Analyzer{
		simulator: simulator,
		profiles:  profiles,
		recorder:  recorder,
		cache:     cache,
		bulkhead:  resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// analysisInput is the fully resolved request; it doubles as the cache key.
type analysisInput struct {
	UserType         domain.UserType                `json:"userType"`
	Location         string                         `json:"location"`
	WasteTypes       map[domain.WasteTypeID]float64 `json:"wasteTypes"`
	DailyEnergyNeeds float64                        `json:"dailyEnergyNeeds"`
	CompanyName      string                         `json:"companyName,omitempty"`
	Conditions       domain.Conditions              `json:"conditions"`
}

// Analyze runs one analysis. The only errors are *domain.ErrValidation for
// an empty waste mix, errors from recording the entry, and context errors.
func (a *Analyzer) Analyze(ctx context.Context, req *domain.AnalysisRequest, onPhase PhaseFunc) (*domain.AnalysisResult, error) {
	ctx, span := tracer.Start(ctx, "Analyzer.Analyze")
	defer span.End()

	start := time.Now()
	defer func() {
		a.metrics.RecordRequestDuration("analyze", time.Since(start))
	}()

	in := a.resolve(req)
	total := domain.SumWaste(in.WasteTypes)
	if total <= 0 {
		return nil, &domain.ErrValidation{Field: "wasteTypes", Message: "no waste to analyze; set wasteTypes or complete the profile"}
	}
	span.SetAttributes(
		attribute.String("user.type", string(in.UserType)),
		attribute.Float64("waste.total_kg", total),
	)

	for _, p := range []domain.Phase{domain.PhaseUpload, domain.PhaseDetect, domain.PhaseSimulate} {
		if err := a.phase(ctx, p, onPhase); err != nil {
			return nil, err
		}
	}

	key, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	var res *domain.AnalysisResult
	if cached, ok := a.cache.Get(string(key)); ok {
		a.metrics.IncrCacheHit("analysis")
		a.metrics.IncrAnalysis(cached.Source)
		res = cloneResult(cached)
	} else {
		a.metrics.IncrCacheMiss("analysis")
		// The shared call outlives any single caller; each caller stops
		// waiting when its own context ends.
		ch := a.flight.DoChan(string(key), func() (any, error) {
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
			defer cancel()
			shared, err := a.compute(fctx, in)
			if err == nil && shared.Source == domain.SourceSimulation {
				a.cache.Set(string(key), shared)
			}
			return shared, err
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			if r.Err != nil {
				return nil, r.Err
			}
			res = cloneResult(r.Val.(*domain.AnalysisResult))
		}
	}
	span.SetAttributes(attribute.String("analysis.source", string(res.Source)))

	if err := a.phase(ctx, domain.PhaseRecommend, onPhase); err != nil {
		return nil, err
	}

	if req.Record && a.recorder != nil {
		id, err := a.recorder.AddEntry(ctx, domain.WasteEntry{
			Date:            a.now().UTC().Format(time.RFC3339),
			WasteTypes:      res.WasteTypes,
			TotalWeight:     res.TotalWeight,
			EnergyGenerated: res.EnergyGenerated,
			Co2Avoided:      res.Co2Avoided,
			CostSavings:     res.CostSavings,
			Description:     req.Description,
			ImageURL:        req.ImageURL,
			AIAnalysis: &domain.AIAnalysis{
				Recommendations:  append([]string(nil), res.Recommendations...),
				Confidence:       res.Confidence,
				ConversionMethod: res.ConversionMethod,
			},
		})
		if err != nil {
			return nil, err
		}
		res.EntryID = id
	}

	return res, nil
}

// compute calls the simulation and falls back to the linear estimate.
func (a *Analyzer) compute(ctx context.Context, in analysisInput) (*domain.AnalysisResult, error) {
	if err := a.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer a.bulkhead.Release()

	total := domain.SumWaste(in.WasteTypes)
	method := impact.BestMethod(in.WasteTypes)
	res := &domain.AnalysisResult{
		WasteTypes:       in.WasteTypes,
		TotalWeight:      total,
		ConversionMethod: method,
		Recommendations:  impact.Recommendations(in.WasteTypes, method, in.UserType),
		AnalyzedAt:       a.now(),
	}

	sim, err := a.simulator.Simulate(ctx, a.simulationRequest(in))
	if err == nil {
		res.Source = domain.SourceSimulation
		res.SimulationID = sim.SimulationID
		res.EnergyGenerated = sim.EnergyGeneratedKWh
		res.Co2Avoided = sim.Co2AvoidedKg
		res.CostSavings = sim.DailySavingsUSD
		res.TreesEquivalent = int(math.Floor(sim.TreesEquivalent + 0.5))
		res.CarsEquivalent = sim.CarsEquivalent
		res.Confidence = domain.LiveConfidence
		a.metrics.IncrAnalysis(domain.SourceSimulation)
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var ua *domain.ErrAnalysisUnavailable
	if errors.As(err, &ua) {
		a.logger.Warn("simulation unavailable, using fallback estimate",
			zap.String("reason", ua.Reason),
			zap.Error(ua.Err),
			zap.Float64("total_kg", total),
		)
	} else {
		a.logger.Warn("simulation failed, using fallback estimate", zap.Error(err))
	}
	a.metrics.IncrExternalError("simulation")
	a.metrics.IncrAnalysis(domain.SourceFallback)

	est := impact.FallbackEstimate(total)
	res.Source = domain.SourceFallback
	res.EnergyGenerated = est.EnergyGenerated
	res.Co2Avoided = est.Co2Avoided
	res.CostSavings = est.CostSavings
	res.TreesEquivalent = impact.TreesEquivalent(est.Co2Avoided)
	res.CarsEquivalent = impact.CarsEquivalent(est.Co2Avoided)
	res.Confidence = domain.FallbackConfidence
	return res, nil
}

// resolve fills the request's empty fields from the stored profile.
func (a *Analyzer) resolve(req *domain.AnalysisRequest) analysisInput {
	var p *domain.UserProfile
	if a.profiles != nil {
		p = a.profiles.Profile()
	}
	if p == nil {
		p = &domain.UserProfile{}
	}

	in := analysisInput{
		UserType:         req.UserType,
		Location:         req.Location,
		WasteTypes:       req.WasteTypes,
		DailyEnergyNeeds: req.DailyEnergyNeeds,
		CompanyName:      p.CompanyName,
		Conditions:       domain.DefaultConditions,
	}
	if in.UserType == domain.UserTypeUnset {
		in.UserType = p.UserType
	}
	if in.UserType == domain.UserTypeUnset {
		in.UserType = domain.UserTypeIndividual
	}
	if in.Location == "" {
		in.Location = p.Location
	}
	if len(in.WasteTypes) == 0 {
		in.WasteTypes = p.WasteTypes
	}
	if in.DailyEnergyNeeds == 0 {
		in.DailyEnergyNeeds = p.DailyEnergyNeeds
	}
	if req.Conditions != nil {
		in.Conditions = *req.Conditions
	}

	waste := make(map[domain.WasteTypeID]float64, len(in.WasteTypes))
	for k, v := range in.WasteTypes {
		if v > 0 {
			waste[k] = v
		}
	}
	in.WasteTypes = waste
	return in
}

func (a *Analyzer) simulationRequest(in analysisInput) *domain.SimulationRequest {
	return &domain.SimulationRequest{
		UserType: in.UserType,
		UserData: domain.SimulationUserData{
			Location:                in.Location,
			WasteTypes:              in.WasteTypes,
			DailyEnergyNeedsKWh:     in.DailyEnergyNeeds,
			CurrentEnergyCostPerKWh: a.cfg.EnergyCostPerKWh,
			CompanyName:             in.CompanyName,
		},
		SimulationDays:  a.cfg.SimulationDays,
		TemperatureC:    in.Conditions.TemperatureC,
		HumidityPercent: in.Conditions.HumidityPercent,
		RainfallMM:      in.Conditions.RainfallMM,
		IncludeNoise:    false,
	}
}

// phase reports p and then waits the configured delay.
func (a *Analyzer) phase(ctx context.Context, p domain.Phase, onPhase PhaseFunc) error {
	if onPhase != nil {
		onPhase(p)
	}
	if a.cfg.PhaseDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.cfg.PhaseDelay):
		return nil
	}
}

func cloneResult(r *domain.AnalysisResult) *domain.AnalysisResult {
	c := *r
	c.WasteTypes = make(map[domain.WasteTypeID]float64, len(r.WasteTypes))
	for k, v := range r.WasteTypes {
		c.WasteTypes[k] = v
	}
	c.Recommendations = append([]string(nil), r.Recommendations...)
	return &c
}
