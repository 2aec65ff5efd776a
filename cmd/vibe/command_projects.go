package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"vibe/internal/api"
	"vibe/internal/config"
	"vibe/internal/logging"
)

type ProjectsCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewProjectsCommand(wiring commandWiring) *ProjectsCommand {
	return &ProjectsCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *ProjectsCommand) Run(args []string) error {
	fs := flag.NewFlagSet("projects", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "projects per page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := buildClient(c.loadConfig, c.newAPI)
	if err != nil {
		return err
	}
	projects, err := client.ListProjects(context.Background(), *page, *limit)
	if err != nil {
		return err
	}
	printProjects(c.stdout, projects)
	return nil
}

type CreateCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewCreateCommand(wiring commandWiring) *CreateCommand {
	return &CreateCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *CreateCommand) Run(args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	name := fs.String("name", "", "project name")
	projectType := fs.String("type", api.ProjectTypeMiniapp, "project type (miniapp or web)")
	description := fs.String("description", "", "project description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := buildClient(c.loadConfig, c.newAPI)
	if err != nil {
		return err
	}
	project, err := client.CreateProject(context.Background(), api.CreateProjectRequest{
		Name:        *name,
		Type:        *projectType,
		Description: *description,
	})
	if err != nil {
		if api.IsQuotaExceeded(err) {
			return errors.New("project quota exceeded, delete a project or upgrade your plan")
		}
		return err
	}
	fmt.Fprintf(c.stdout, "created %s (%s)\n", project.ID, project.Name)
	return nil
}

type DeleteCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewDeleteCommand(wiring commandWiring) *DeleteCommand {
	return &DeleteCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *DeleteCommand) Run(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
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
	if err := client.DeleteProject(context.Background(), *projectID); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "deleted %s\n", *projectID)
	return nil
}

type RenameCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
}

func NewRenameCommand(wiring commandWiring) *RenameCommand {
	return &RenameCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
	}
}

func (c *RenameCommand) Run(args []string) error {
	fs := flag.NewFlagSet("rename", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	projectID := fs.String("project", "", "project id")
	name := fs.String("name", "", "new project name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *projectID == "" || *name == "" {
		return errors.New("--project and --name are required")
	}

	client, err := buildClient(c.loadConfig, c.newAPI)
	if err != nil {
		return err
	}
	if err := client.RenameProject(context.Background(), *projectID, *name); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "renamed %s to %q\n", *projectID, *name)
	return nil
}

func buildClient(loadConfig func() (config.Config, error), newAPI apiFactory) (*api.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAPI(cfg, logging.Nop()), nil
}
