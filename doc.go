// Package locus is the composition root for locus, a background service that
// reminds you of notes tagged with a place when you get near it.
//
// It wires the proximity engine to its collaborators: a note store (a vault of
// Markdown files by default), a position provider, an activity recognizer and a
// notifier. Every collaborator can be replaced through functional options.
//
// Usage:
//
//	rt, err := locus.New(
//		locus.WithVault("~/notes"),
//		locus.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Run in the background until ctx ends.
//	if err := rt.Host.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	<-ctx.Done()
//	_ = rt.Host.Stop(context.Background())
//
// A note is considered nearby when it lies within two statute miles of the current
// position. Nearby notes are announced as one grouped notification, at most once a
// minute and at most five times per note per day.
package locus
