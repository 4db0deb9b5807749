package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aretw0/locus/pkg/core"
)

var (
	addTitle   string
	addContent string
	addTags    []string
	addLat     float64
	addLon     float64
	addPlace   string
	addAddress string
)

var addCmd = &cobra.Command{
	Use:   "add [id]",
	Short: "Create or update a note",
	Long: `Create or update a note in the vault. Without an id, a random one is generated.
Content is read from --content, or from stdin when it is "-".`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		note, err := buildNote(cmd, args)
		if err != nil {
			fatal("Invalid note", err)
		}

		rt, err := newRuntime(cmd)
		if err != nil {
			fatal("Error initializing locus", err)
		}
		defer rt.Positions.Close()

		saved, err := rt.Service.SaveNote(context.Background(), note)
		if err != nil {
			fatal("Error saving note", err)
		}
		fmt.Printf("Saved %s\n", formatNote(saved))
	},
}

func buildNote(cmd *cobra.Command, args []string) (core.Note, error) {
	note := core.Note{Title: addTitle, Tags: addTags}
	if len(args) == 1 {
		note.ID = args[0]
	}

	note.Content = addContent
	if addContent == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return core.Note{}, fmt.Errorf("failed to read content: %w", err)
		}
		note.Content = string(data)
	}

	var lat, lon *float64
	if cmd.Flags().Changed("lat") {
		lat = &addLat
	}
	if cmd.Flags().Changed("lon") {
		lon = &addLon
	}
	loc, err := core.NewLocation(addPlace, lat, lon, addAddress)
	if err != nil {
		return core.Note{}, err
	}
	note.Location = loc
	return note, nil
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Note title")
	addCmd.Flags().StringVar(&addContent, "content", "", `Note body ("-" reads stdin)`)
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag (repeatable)")
	addCmd.Flags().Float64Var(&addLat, "lat", 0, "Latitude in decimal degrees")
	addCmd.Flags().Float64Var(&addLon, "lon", 0, "Longitude in decimal degrees")
	addCmd.Flags().StringVar(&addPlace, "place", "", "Place name")
	addCmd.Flags().StringVar(&addAddress, "address", "", "Street address")
}
