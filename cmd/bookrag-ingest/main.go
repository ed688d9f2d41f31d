// Package main is the entry point for the bookrag ingestion command.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/bookrag/cmd/bookrag-ingest/app"
)

func main() {
	app.NewApp().Run()
}
