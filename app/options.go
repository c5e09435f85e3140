package app

import (
	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/logger"
)

// Options contains optional dependencies for creating an App instance
type Options struct {
	// Config skips loading when set.
	Config        *config.Config
	ConfigLoader  func() (*config.Config, error)
	Logger        logger.Logger
	Server        ServerRunner
	SignalHandler SignalHandler
}
