// Package main is the entry point for the bookrag credential checks.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/bookrag/cmd/bookrag-verify/app"
)

func main() {
	app.NewApp().Run()
}
