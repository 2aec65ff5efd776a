package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"vibe/internal/config"
	"vibe/internal/logging"
	"vibe/internal/protocol"
)

type HistoryCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewHistoryCommand(wiring commandWiring) *HistoryCommand {
	return &HistoryCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *HistoryCommand) Run(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	projectID := fs.String("project", "", "project id")
	limit := fs.Int("limit", 20, "events per page")
	offset := fs.Int("offset", 0, "events to skip")
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
	events, hasMore, err := client.History(context.Background(), *projectID, *limit, *offset)
	if err != nil {
		return err
	}

	decoder := protocol.NewDecoder(logging.Nop())
	messages := decoder.DecodeHistory(events, *offset)
	printMessages(c.stdout, messages)
	if hasMore {
		fmt.Fprintf(c.stdout, "more available, rerun with --offset %d\n", *offset+len(events))
	}
	return nil
}

type ClearCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewClearCommand(wiring commandWiring) *ClearCommand {
	return &ClearCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *ClearCommand) Run(args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
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
	if err := client.ClearHistory(context.Background(), *projectID); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "history cleared for %s\n", *projectID)
	return nil
}
