package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoequity/gei/internal/model"
)

var (
	queryAddress string
	queryRadius  float64
	queryText    bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Answer a single address + radius query",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Engine.Answer(ctx, queryAddress, queryRadius)
		if err != nil {
			return err
		}

		zap.L().Info("query complete",
			zap.String("query_id", result.QueryID),
			zap.Int("sites", len(result.Sites)),
		)

		if queryText {
			printResult(result)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// printResult writes a terminal-friendly rendering of the result.
func printResult(r *model.QueryResult) {
	fmt.Printf("Address:    %s\n", r.Address)
	if r.FormattedAddress != "" {
		fmt.Printf("Resolved:   %s\n", r.FormattedAddress)
	}
	fmt.Printf("Coordinate: %s\n", r.Coordinate)

	if r.Region == nil {
		fmt.Println("Region:     outside all census tracts")
	} else {
		fmt.Printf("Region:     %s (GEOID %s)\n", r.Region.Name, r.Region.GEOID)
		printScore("  overall", r.Region.Overall)
		printScore("  health", r.Region.Health)
		printScore("  socioeconomic", r.Region.Socio)
		printScore("  environmental", r.Region.Env)
	}

	fmt.Printf("Sites within %.1f mi: %d\n", r.RadiusMiles, len(r.Sites))
	for _, sd := range r.Sites {
		fmt.Printf("  %6.2f mi  score %d  %s\n", sd.Miles, sd.Site.HazardScore, sd.Site.SiteName)
	}

	for _, domain := range model.Domains {
		vals := r.Features[domain]
		if len(vals) == 0 {
			continue
		}
		fmt.Printf("Top %s features:\n", domain)
		for _, v := range vals {
			fmt.Printf("  #%d %-40s %6.2f\n", v.Rank, v.Label, v.Percentile)
		}
	}
}

func printScore(label string, v *float64) {
	if v == nil {
		fmt.Printf("%s: n/a\n", label)
		return
	}
	fmt.Printf("%s: %.3f\n", label, *v)
}

func init() {
	queryCmd.Flags().StringVar(&queryAddress, "address", "", "free-text address (required)")
	queryCmd.Flags().Float64Var(&queryRadius, "radius", 5, "search radius in miles")
	queryCmd.Flags().BoolVar(&queryText, "text", false, "human-readable output instead of JSON")
	_ = queryCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(queryCmd)
}
