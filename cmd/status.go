package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

// datasetStatus summarizes what was loaded at startup.
type datasetStatus struct {
	Regions       int      `json:"regions"`
	Sites         int      `json:"sites"`
	Features      int      `json:"features"`
	GeocodeCached int      `json:"geocode_cached"`
	HazardScore   scoreRng `json:"hazard_score"`
	GEIScore      *geiRng  `json:"gei_overall_score,omitempty"`
}

type scoreRng struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type geiRng struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func buildStatus(env *queryEnv) datasetStatus {
	st := datasetStatus{
		Regions:       env.Regions.Len(),
		Sites:         env.Hazards.Len(),
		Features:      env.Features.Len(),
		GeocodeCached: env.Cache.Len(),
	}
	st.HazardScore.Min, st.HazardScore.Max = env.Hazards.ScoreRange()
	if min, max, ok := env.Regions.ScoreRange(); ok {
		st.GEIScore = &geiRng{Min: min, Max: max}
	}
	return st
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Load the datasets and print their summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(buildStatus(env))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
