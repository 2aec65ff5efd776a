package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"vibe/internal/config"
)

type StopCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewStopCommand(wiring commandWiring) *StopCommand {
	return &StopCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *StopCommand) Run(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	projectID := fs.String("project", "", "project id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *projectID == "" {
		return errors.New("--project is required")
	}

	client, err := buildClient(c.loadConfig, c.newAPI)
	if err != nil {
		return err
	}
	if err := client.StopAgent(context.Background(), *projectID); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "agent stopped for %s\n", *projectID)
	return nil
}
