package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"vibe/internal/config"
)

type VersionsCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewVersionsCommand(wiring commandWiring) *VersionsCommand {
	return &VersionsCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *VersionsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("versions", flag.ContinueOnError)
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
	versions, err := client.Versions(context.Background(), *projectID)
	if err != nil {
		return err
	}
	printVersions(c.stdout, versions)
	return nil
}

type RollbackCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewRollbackCommand(wiring commandWiring) *RollbackCommand {
	return &RollbackCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *RollbackCommand) Run(args []string) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	projectID := fs.String("project", "", "project id")
	versionID := fs.String("version", "", "version id to restore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *projectID == "" || *versionID == "" {
		return errors.New("--project and --version are required")
	}

	client, err := buildClient(c.loadConfig, c.newAPI)
	if err != nil {
		return err
	}
	if err := client.RollbackVersion(context.Background(), *projectID, *versionID); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "rolled %s back to %s\n", *projectID, *versionID)
	return nil
}
