// Package main is the entry point for the bookrag question answering service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/bookrag/cmd/bookrag/app"
)

func main() {
	app.NewApp().Run()
}
