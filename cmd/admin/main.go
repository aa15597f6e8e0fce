// Command admin runs maintenance tasks against the configured store.
package main

import (
	"os"

	"virtualboard/internal/config"
	"virtualboard/internal/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, "console")
	for _, w := range cfg.Warnings {
		log.Warn().Msg("config: " + w)
	}
	cli := newCommandLine(cfg, log)
	if err := cli.root().Execute(); err != nil {
		os.Exit(1)
	}
}
