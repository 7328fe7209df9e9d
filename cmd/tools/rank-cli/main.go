// cmd/tools/rank-cli/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"program-recommender/internal/common/config"
	"program-recommender/internal/common/logger"
	"program-recommender/internal/engine"
	"program-recommender/internal/models"
)

func main() {
	requestPath := flag.String("request", "", "Path to a recommendation request JSON file (- for stdin)")
	configPath := flag.String("config", "", "Optional config file whose engine section overrides the defaults")
	limit := flag.Int("limit", 0, "Override the request limit (0 keeps the request value)")
	asJSON := flag.Bool("json", false, "Print the raw result instead of a table")
	verbose := flag.Bool("v", false, "Log engine debug output")
	flag.Parse()

	if *requestPath == "" {
		fmt.Println("Error: -request is required.")
		flag.Usage()
		os.Exit(1)
	}

	req, err := readRequest(*requestPath)
	if err != nil {
		color.Red("Error reading request: %v", err)
		os.Exit(1)
	}
	if *limit > 0 {
		req.Limit = limit
	}

	engineCfg := engine.DefaultConfig()
	if *configPath != "" {
		cfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			color.Red("Error loading config: %v", err)
			os.Exit(1)
		}
		engineCfg = engine.ConfigFromSettings(cfg.Engine)
	}

	log := logger.NewNoOpLogger()
	if *verbose {
		log = logger.NewStructured("debug", "console")
	}

	eng, err := engine.New(engineCfg, log)
	if err != nil {
		color.Red("Error creating engine: %v", err)
		os.Exit(1)
	}

	result, err := eng.Rank(context.Background(), req)
	if err != nil {
		color.Red("Ranking failed: %v", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			color.Red("Error encoding result: %v", err)
			os.Exit(1)
		}
		return
	}

	printRanking(result)
	printDiagnostics(result.Diagnostics)
}

func readRequest(path string) (*models.RecommendationRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var req models.RecommendationRequest
	if err := models.DecodeJSON(data, &req); err != nil {
		return nil, fmt.Errorf("invalid request JSON: %w", err)
	}
	return &req, nil
}

func printRanking(result *models.RecommendationResult) {
	color.Cyan("\n=== Program Recommendations ===")
	fmt.Printf("Considered: %d  Eligible: %d  Returned: %d\n",
		result.TotalCountConsidered, result.EligibleCount, len(result.Ranked))

	if len(result.Ranked) == 0 {
		color.Yellow("No eligible programs.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "ID", "Program", "University", "Total",
		"Field", "Budget", "Academic", "Location", "Duration"})

	for _, c := range result.Ranked {
		table.Append([]string{
			strconv.Itoa(c.Rank),
			strconv.FormatInt(c.ProgramID, 10),
			c.Name,
			c.UniversityName,
			formatScore(c.TotalScore),
			criterion(c, models.CriterionFieldMatch),
			criterion(c, models.CriterionBudgetFit),
			criterion(c, models.CriterionAcademicFit),
			criterion(c, models.CriterionLocationPreference),
			criterion(c, models.CriterionDurationFit),
		})
	}
	table.Render()
}

func printDiagnostics(diags []models.Diagnostic) {
	if len(diags) == 0 {
		return
	}

	color.Yellow("\nDiagnostics")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Program", "Kind", "Message"})
	table.SetAutoWrapText(false)

	for _, d := range diags {
		program := "-"
		if d.ProgramID != nil {
			program = strconv.FormatInt(*d.ProgramID, 10)
		}
		table.Append([]string{program, string(d.Kind), d.Message})
	}
	table.Render()
}

func criterion(c models.ScoredCandidate, name string) string {
	score, ok := c.CriterionScores[name]
	if !ok {
		return "-"
	}
	return formatScore(score)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
