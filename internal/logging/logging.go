// Package logging installs the process-wide structured logger.
package logging

import (
	"github.com/kart-io/logger"
	"github.com/kart-io/logger/option"

	"ragpipeline/internal/config"
)

// Options maps the log section of the app config onto logger options.
func Options(cfg config.LogConfig) *option.LogOption {
	opt := option.DefaultLogOption()
	if cfg.Engine != "" {
		opt.Engine = cfg.Engine
	}
	if cfg.Level != "" {
		opt.Level = cfg.Level
	}
	if cfg.Format != "" {
		opt.Format = cfg.Format
	}
	if len(cfg.OutputPaths) > 0 {
		opt.OutputPaths = cfg.OutputPaths
	}
	opt.AddInitialField("service.name", "rag")
	return opt
}

// Init builds a logger from cfg and sets it as the global logger.
func Init(cfg config.LogConfig) error {
	opt := Options(cfg)
	if err := opt.Validate(); err != nil {
		return err
	}
	l, err := logger.New(opt)
	if err != nil {
		return err
	}
	logger.SetGlobal(l)
	return nil
}
