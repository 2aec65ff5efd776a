package main

import (
	"io"
	"os"

	"vibe/internal/api"
	"vibe/internal/chat"
	"vibe/internal/config"
	"vibe/internal/logging"
)

type commandRunner interface {
	Run(args []string) error
}

type apiFactory func(cfg config.Config, log logging.Logger) *api.Client

type chatRunner func(session *chat.Session, projectName string, log logging.Logger) error

type commandWiring struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
	runChat    chatRunner
	version    string
}

func defaultCommandWiring(stdout, stderr io.Writer) commandWiring {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return commandWiring{
		stdout:     stdout,
		stderr:     stderr,
		loadConfig: config.Load,
		newAPI: func(cfg config.Config, log logging.Logger) *api.Client {
			return api.New(cfg.APIBaseURL(), cfg.Token(), log)
		},
		runChat: runChatUI,
		version: buildVersion(),
	}
}

func buildCommands(wiring commandWiring) map[string]commandRunner {
	return map[string]commandRunner{
		"chat":     NewChatCommand(wiring),
		"projects": NewProjectsCommand(wiring),
		"create":   NewCreateCommand(wiring),
		"delete":   NewDeleteCommand(wiring),
		"rename":   NewRenameCommand(wiring),
		"history":  NewHistoryCommand(wiring),
		"clear":    NewClearCommand(wiring),
		"versions": NewVersionsCommand(wiring),
		"rollback": NewRollbackCommand(wiring),
		"stop":     NewStopCommand(wiring),
		"config":   NewConfigCommand(wiring),
	}
}
