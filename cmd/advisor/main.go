// Package main is the entry point for the advisor decision core.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/advisor-x/cmd/advisor/app"
)

func main() {
	app.NewApp().Run()
}
