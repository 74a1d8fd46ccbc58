package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fialo-ai/fialo-bfa-go/internal/config"
	"github.com/fialo-ai/fialo-bfa-go/internal/domain"
	"github.com/fialo-ai/fialo-bfa-go/internal/impact"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/cache"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/client"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/observability"
	"github.com/fialo-ai/fialo-bfa-go/internal/infra/resilience"
	"github.com/fialo-ai/fialo-bfa-go/internal/port"
	"github.com/fialo-ai/fialo-bfa-go/internal/service"
	"github.com/fialo-ai/fialo-bfa-go/internal/store"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print totals and impact equivalents of the recorded entries",
	Long: `Reads the persisted waste log from the configured backend and prints
its totals with tree, car and home equivalents.

Examples:
  bfa stats
  bfa stats --start 2024-03-01 --end 2024-03-31 --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		return runStats(cmd.Context(), start, end)
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <type=kg>...",
	Short: "Estimate energy, CO2 and savings for a waste mix",
	Long: `Runs the analyzer over the given waste mix. The simulation service is
asked first; when it cannot answer the linear estimate is used.

Examples:
  bfa estimate food_scraps=6 market_waste=4
  bfa estimate wood_biomass=12 --user-type company --offline`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		waste, err := parseWasteArgs(args)
		if err != nil {
			return err
		}
		userType, _ := cmd.Flags().GetString("user-type")
		offline, _ := cmd.Flags().GetBool("offline")
		return runEstimate(cmd.Context(), waste, domain.UserType(userType), offline)
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the waste types and their conversion properties",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalog()
	},
}

func init() {
	statsCmd.Flags().String("start", "", "Only entries on or after this date (RFC3339 or YYYY-MM-DD)")
	statsCmd.Flags().String("end", "", "Only entries on or before this date (RFC3339 or YYYY-MM-DD)")

	estimateCmd.Flags().String("user-type", string(domain.UserTypeIndividual), "individual or company")
	estimateCmd.Flags().Bool("offline", false, "Skip the simulation service and use the linear estimate")
}

func runStats(ctx context.Context, start, end string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.Load()
	logger := observability.NewCLILogger()
	defer logger.Sync()

	snapshots, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	waste := store.NewWasteStore(snapshots, logger, observability.NewMetrics())
	if err := store.Hydrate(ctx, logger, waste); err != nil {
		return err
	}

	entries := waste.Entries()
	if start != "" || end != "" {
		entries = waste.EntriesByDateRange(start, end)
	}
	summary := impact.Summary(entries)

	if output == "json" {
		return printJSON(summary)
	}
	fmt.Printf("Entries:        %d\n", summary.EntryCount)
	fmt.Printf("Waste (kg):     %.2f\n", summary.Totals.TotalWaste)
	fmt.Printf("Energy (kWh):   %.2f\n", summary.Totals.TotalEnergy)
	fmt.Printf("CO2 avoided:    %.2f kg\n", summary.Totals.TotalCo2Avoided)
	fmt.Printf("Savings (USD):  %.2f\n", summary.Totals.TotalSavings)
	fmt.Printf("Trees:          %d\n", summary.Equivalents.TreesEquivalent)
	fmt.Printf("Cars:           %.4f\n", summary.Equivalents.CarsEquivalent)
	fmt.Printf("Homes powered:  %d\n", summary.Equivalents.HomesPowered)
	return nil
}

// fixedProfile feeds the analyzer a profile that only carries the user type.
type fixedProfile struct{ userType domain.UserType }

func (p fixedProfile) Profile() *domain.UserProfile {
	return &domain.UserProfile{UserType: p.userType}
}

// noSimulator always declines, forcing the linear estimate.
type noSimulator struct{}

func (noSimulator) Simulate(context.Context, *domain.SimulationRequest) (*domain.SimulationResult, error) {
	return nil, &domain.ErrAnalysisUnavailable{Reason: "offline"}
}

func runEstimate(ctx context.Context, waste map[domain.WasteTypeID]float64, userType domain.UserType, offline bool) error {
	if !userType.Valid() {
		return fmt.Errorf("unknown user type %q", userType)
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.Load()
	logger := observability.NewCLILogger()
	defer logger.Sync()

	var simulator port.Simulator = noSimulator{}
	if !offline {
		rc := resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff, MaxConcurrency: 1}
		simulator = client.NewSimulationClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.SimulationAPIURL,
			resilience.NewCircuitBreaker("simulation-api"), rc)
	}

	analysisCache := cache.New[*domain.AnalysisResult](cfg.CacheTTL)
	defer analysisCache.Close()

	analyzer := service.NewAnalyzer(simulator, fixedProfile{userType: userType}, nil, analysisCache,
		service.AnalyzerConfig{EnergyCostPerKWh: cfg.EnergyCostPerKWh, SimulationDays: cfg.SimulationDays, MaxConcurrency: 1},
		observability.NewMetrics(), logger)

	res, err := analyzer.Analyze(ctx, &domain.AnalysisRequest{WasteTypes: waste, UserType: userType}, nil)
	if err != nil {
		return err
	}

	if output == "json" {
		return printJSON(res)
	}
	fmt.Printf("Source:         %s (confidence %.2f)\n", res.Source, res.Confidence)
	fmt.Printf("Waste (kg):     %.2f\n", res.TotalWeight)
	fmt.Printf("Energy (kWh):   %.2f\n", res.EnergyGenerated)
	fmt.Printf("CO2 avoided:    %.2f kg\n", res.Co2Avoided)
	fmt.Printf("Savings (USD):  %.2f\n", res.CostSavings)
	fmt.Printf("Best method:    %s\n", res.ConversionMethod)
	for _, rec := range res.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
	return nil
}

func runCatalog() error {
	list := domain.CatalogList()
	if output == "json" {
		return printJSON(list)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKWH/KG\tCO2 KG/KG\tBEST METHOD")
	for _, wt := range list {
		best := impact.BestMethod(map[domain.WasteTypeID]float64{wt.ID: 1})
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.2f\t%s\n", wt.ID, wt.Name, wt.EnergyKWhPerKg, wt.Co2KgPerKg, best)
	}
	return tw.Flush()
}

// parseWasteArgs reads "type=kg" pairs; repeated types add up.
func parseWasteArgs(args []string) (map[domain.WasteTypeID]float64, error) {
	waste := make(map[domain.WasteTypeID]float64, len(args))
	for _, arg := range args {
		name, qty, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected type=kg, got %q", arg)
		}
		id := domain.WasteTypeID(strings.TrimSpace(name))
		if !domain.IsKnownWasteType(id) {
			return nil, fmt.Errorf("unknown waste type %q (see `bfa catalog`)", id)
		}
		kg, err := strconv.ParseFloat(strings.TrimSpace(qty), 64)
		if err != nil || kg < 0 {
			return nil, fmt.Errorf("invalid quantity for %s: %q", id, qty)
		}
		waste[id] += kg
	}
	return waste, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
