// Command keyrelay runs the key-rotating provider router as a long-lived
// HTTP server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gaborage/keyrelay/app"
	"github.com/gaborage/keyrelay/generate"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyrelay: %v\n", err)
		os.Exit(1)
	}

	if err := a.RegisterModule(generate.NewModule()); err != nil {
		a.Logger().Fatal().Err(err).Msg("Failed to register module")
	}

	if err := a.Run(context.Background()); err != nil {
		a.Logger().Error().Err(err).Msg("Application stopped with error")
		os.Exit(1)
	}
}
