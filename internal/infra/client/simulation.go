package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("client")

// SimulationClient calls the waste-to-energy simulation API.
type SimulationClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewSimulationClient creates a new SimulationClient. An empty baseURL
// makes every call report the collaborator as unavailable.
func NewSimulationClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *SimulationClient {
	return &SimulationClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// Simulate runs a personal simulation. Every failure, including a response
// missing a required field, is returned as *domain.ErrAnalysisUnavailable.
func (c *SimulationClient) Simulate(ctx context.Context, req *domain.SimulationRequest) (*domain.SimulationResult, error) {
	ctx, span := tracer.Start(ctx, "SimulationClient.Simulate")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.type", string(req.UserType)),
		attribute.Int("simulation.days", req.SimulationDays),
	)

	if c.baseURL == "" {
		return nil, &domain.ErrAnalysisUnavailable{Reason: "simulation endpoint not configured"}
	}

	result, err := c.cb.Execute(func() (any, error) {
		var out *domain.SimulationResult
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(req)
			if err != nil {
				return resilience.Permanent(err)
			}

			url := fmt.Sprintf("%s/api/simulate-personal", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return resilience.Permanent(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode >= 500:
				return fmt.Errorf("simulation API returned status %d", resp.StatusCode)
			case resp.StatusCode < 200 || resp.StatusCode > 299:
				return resilience.Permanent(fmt.Errorf("simulation API returned status %d", resp.StatusCode))
			}

			var simResp domain.SimulationResponse
			if err := json.NewDecoder(resp.Body).Decode(&simResp); err != nil {
				return resilience.Permanent(&domain.ErrAnalysisUnavailable{Reason: "malformed response", Err: err})
			}
			res, err := validateSimulation(&simResp)
			if err != nil {
				return resilience.Permanent(err)
			}
			out = res
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return out, nil
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "simulation failed")
		return nil, unavailable(err)
	}

	res := result.(*domain.SimulationResult)
	span.SetAttributes(attribute.String("simulation.id", res.SimulationID))
	return res, nil
}

func unavailable(err error) error {
	var ua *domain.ErrAnalysisUnavailable
	if errors.As(err, &ua) {
		return ua
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrAnalysisUnavailable{Reason: "circuit open", Err: &domain.ErrCircuitOpen{Service: "simulation"}}
	}
	return &domain.ErrAnalysisUnavailable{
		Reason: "simulation call failed",
		Err:    &domain.ErrExternalService{Service: "simulation", Err: err},
	}
}

// validateSimulation rejects a response missing any field the analyzer consumes.
func validateSimulation(r *domain.SimulationResponse) (*domain.SimulationResult, error) {
	missing := func(field string) error {
		return &domain.ErrAnalysisUnavailable{Reason: "response missing " + field}
	}

	if r.Results == nil || r.Results.DailyAverages == nil {
		return nil, missing("results.daily_averages")
	}
	avg := r.Results.DailyAverages
	if avg.EnergyGeneratedKWh == nil {
		return nil, missing("results.daily_averages.energy_generated_kwh")
	}
	if avg.Co2AvoidedKg == nil {
		return nil, missing("results.daily_averages.co2_avoided_kg")
	}

	impact := r.PersonalImpact
	if impact == nil {
		return nil, missing("personal_impact")
	}
	if impact.DailySavingsUSD == nil {
		return nil, missing("personal_impact.daily_savings_usd")
	}
	if impact.TreesEquivalent == nil {
		return nil, missing("personal_impact.trees_equivalent")
	}
	if impact.CarsEquivalent == nil {
		return nil, missing("personal_impact.cars_equivalent")
	}

	return &domain.SimulationResult{
		SimulationID:       r.SimulationID,
		EnergyGeneratedKWh: *avg.EnergyGeneratedKWh,
		Co2AvoidedKg:       *avg.Co2AvoidedKg,
		DailySavingsUSD:    *impact.DailySavingsUSD,
		TreesEquivalent:    *impact.TreesEquivalent,
		CarsEquivalent:     *impact.CarsEquivalent,
	}, nil
}
