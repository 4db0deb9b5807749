package locus_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/locus"
	"github.com/aretw0/locus/pkg/adapters/memory"
	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/notify"
	"github.com/aretw0/locus/pkg/position"
	"github.com/aretw0/locus/pkg/proximity"
)

// Example_checkNow runs one evaluation against an in-memory store.
func Example_checkNow() {
	store := memory.New(memory.WithNotes(
		core.Note{
			ID:       "bakery",
			Title:    "Pick up the cake",
			Location: &core.Location{Name: "Bakery", Latitude: 52.5200, Longitude: 13.4050},
		},
		core.Note{
			ID:       "airport",
			Title:    "Passport check",
			Location: &core.Location{Name: "Airport", Latitude: 52.3667, Longitude: 13.5033},
		},
	))
	recorder := notify.NewRecorder(4)

	rt, err := locus.New(
		locus.WithRepository(store),
		locus.WithPositionProvider(position.StaticProvider{
			Coordinate: core.Coordinate{Latitude: 52.5219, Longitude: 13.4132},
		}),
		locus.WithNotifier(recorder),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := rt.Engine.Evaluate(context.Background(), proximity.TriggerManual)
	if err != nil {
		log.Fatal(err)
	}

	n := <-recorder.C()
	fmt.Println(res.Outcome)
	fmt.Println(n.Title)
	fmt.Println(n.Body)
	// Output:
	// notified
	// You have 1 nearby note
	// Pick up the cake
}
