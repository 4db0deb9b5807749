package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/proximity"
)

var (
	checkJSON     bool
	checkState    bool
	checkDiagram  bool
	checkSimulate string
)

// checkOutput is the JSON form of one evaluation.
type checkOutput struct {
	Outcome  proximity.Outcome `json:"outcome"`
	Position *core.Coordinate  `json:"position,omitempty"`
	Nearby   []nearbyNote      `json:"nearby"`
	Notified []string          `json:"notified,omitempty"`
	State    any               `json:"state,omitempty"`
}

type nearbyNote struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	DistanceM float64 `json:"distance_m"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check for nearby notes once, using a high-accuracy position",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := newRuntime(cmd)
		if err != nil {
			fatal("Error initializing locus", err)
		}
		defer rt.Positions.Close()

		if checkSimulate != "" {
			a, err := core.ParseActivity(checkSimulate)
			if err != nil {
				fatal("Invalid --simulate", err)
			}
			rt.Tracker.Simulate(a)
		}

		res, err := rt.Engine.Evaluate(context.Background(), proximity.TriggerManual)
		if err != nil {
			fatal("Error checking nearby notes", err)
		}

		out := checkOutput{Outcome: res.Outcome, Notified: res.Notified, Nearby: []nearbyNote{}}
		if res.Located {
			pos := res.Position
			out.Position = &pos
		}
		for _, m := range res.Nearby {
			out.Nearby = append(out.Nearby, nearbyNote{ID: m.Note.ID, Title: m.Note.Title, DistanceM: m.Distance})
		}
		if checkState {
			out.State = rt.Host.Inspect()
		}

		if checkJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(out); err != nil {
				fatal("Error encoding JSON", err)
			}
		} else {
			printCheck(out)
		}

		if checkDiagram {
			fmt.Println(rt.Host.Diagram())
		}
	},
}

func printCheck(out checkOutput) {
	if out.Position == nil {
		fmt.Println("Position unavailable")
		return
	}
	fmt.Printf("Position %s\n", out.Position)
	if len(out.Nearby) == 0 {
		fmt.Println("No nearby notes")
	}
	for _, n := range out.Nearby {
		fmt.Printf("%s - %s (%s)\n", n.ID, n.Title, formatDistance(n.DistanceM))
	}
	fmt.Printf("Outcome: %s\n", out.Outcome)

	if out.State != nil {
		data, err := json.MarshalIndent(out.State, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
	}
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
	checkCmd.Flags().BoolVar(&checkState, "state", false, "Include the state of every component")
	checkCmd.Flags().BoolVar(&checkDiagram, "diagram", false, "Print a Mermaid diagram of the components")
	checkCmd.Flags().StringVar(&checkSimulate, "simulate", "", "Inject an activity before checking (e.g. walking)")
}
