package main

import (
	"flag"
	"fmt"
	"io"

	toml "github.com/pelletier/go-toml/v2"

	"vibe/internal/config"
)

type ConfigCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	version    string
}

func NewConfigCommand(wiring commandWiring) *ConfigCommand {
	return &ConfigCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		version:    wiring.version,
	}
}

// Run prints the effective configuration after file and environment
// resolution, with the token masked.
func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("defaults", false, "print built-in defaults instead of the effective config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg config.Config
	if *defaults {
		cfg = config.DefaultConfig()
	} else {
		loaded, err := c.loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cfg.Server.Token != "" {
		cfg.Server.Token = "****"
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "# vibe %s\n", c.version)
	_, err = c.stdout.Write(data)
	return err
}
