package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/locus/pkg/core"
)

var (
	listJSON     bool
	filterTag    string
	withLocation bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes in the vault",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := newRuntime(cmd)
		if err != nil {
			fatal("Error initializing locus", err)
		}
		defer rt.Positions.Close()

		notes, err := rt.Service.ListNotes(context.Background())
		if err != nil {
			fatal("Error listing notes", err)
		}

		filtered := filterNotes(notes, filterTag, withLocation)

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, note := range filtered {
			fmt.Println(formatNote(note))
		}
	},
}

func filterNotes(notes []core.Note, tag string, located bool) []core.Note {
	filtered := []core.Note{}
	for _, note := range notes {
		if tag != "" && !note.HasTag(tag) {
			continue
		}
		if _, ok := note.Coordinate(); located && !ok {
			continue
		}
		filtered = append(filtered, note)
	}
	return filtered
}

// formatNote renders "ID - Title @ place (lat, lon)".
func formatNote(n core.Note) string {
	line := n.ID
	if n.Title != "" {
		line += " - " + n.Title
	}
	if n.Location != nil {
		line += " @"
		if n.Location.Name != "" {
			line += " " + n.Location.Name
		}
		line += " " + n.Location.Coordinate().String()
	}
	return line
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterTag, "tag", "", "Filter notes by tag")
	listCmd.Flags().BoolVar(&withLocation, "located", false, "Only notes with a location")
}
