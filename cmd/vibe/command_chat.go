package main

import (
	"context"
	"errors"
	"flag"
	"io"

	"vibe/internal/api"
	"vibe/internal/app"
	"vibe/internal/chat"
	"vibe/internal/config"
	"vibe/internal/logging"
	"vibe/internal/socket"
	"vibe/internal/store"
)

type ChatCommand struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (config.Config, error)
	newAPI     apiFactory
	runChat    chatRunner
}

func NewChatCommand(wiring commandWiring) *ChatCommand {
	return &ChatCommand{
		stdout:     wiring.stdout,
		stderr:     wiring.stderr,
		loadConfig: wiring.loadConfig,
		newAPI:     wiring.newAPI,
		runChat:    wiring.runChat,
	}
}

func (c *ChatCommand) Run(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	projectID := fs.String("project", "", "project id")
	model := fs.String("model", "", "model override for this session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *projectID == "" {
		return errors.New("--project is required")
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns stdout, so logs go to the file sink.
	log, closeLog, err := openFileLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	apiClient := c.newAPI(cfg, log.With(logging.F("component", "api")))

	ctx := context.Background()
	project, err := apiClient.GetProject(ctx, *projectID)
	if err != nil {
		return err
	}

	sessionModel, err := resolveModel(ctx, cfg, *model)
	if err != nil {
		return err
	}
	rememberProject(ctx, project, sessionModel, log)

	transport := socket.NewClient(socket.Config{
		BaseURL: cfg.SocketBaseURL(),
		Token:   cfg.Token(),
		Origin:  cfg.Origin(),
		Logger:  log.With(logging.F("component", "socket")),
	})

	session := chat.NewSession(chat.Config{
		ProjectID: project.ID,
		UserID:    cfg.UserID(),
		Device:    cfg.Device(),
		Model:     sessionModel,
		PageSize:  cfg.HistoryPageSize(),
	}, apiClient, transport, log.With(logging.F("component", "chat")))
	defer session.Close()

	return c.runChat(session, project.Name, log)
}

func runChatUI(session *chat.Session, projectName string, log logging.Logger) error {
	return app.Run(session, projectName, log)
}

func openFileLogger(cfg config.Config) (logging.Logger, func(), error) {
	path, err := config.LogPath()
	if err != nil {
		return nil, nil, err
	}
	sink, err := logging.FileSink(path)
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(sink, logging.ParseLevel(cfg.LogLevel()))
	return log, func() { _ = sink.Close() }, nil
}

// resolveModel picks the model for the session: explicit flag, then the
// sticky choice from the state store, then the configured default.
func resolveModel(ctx context.Context, cfg config.Config, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	path, err := config.StatePath()
	if err != nil {
		return cfg.DefaultModel(), nil
	}
	st, err := store.Open(path)
	if err != nil {
		return cfg.DefaultModel(), nil
	}
	defer st.Close()
	saved, err := st.SelectedModel(ctx)
	if err != nil || saved == "" {
		return cfg.DefaultModel(), nil
	}
	return saved, nil
}

// rememberProject records the project in the recents list. Failures only
// degrade the recents view, so they are logged and swallowed.
func rememberProject(ctx context.Context, project *api.Project, model string, log logging.Logger) {
	path, err := config.StatePath()
	if err != nil {
		return
	}
	st, err := store.Open(path)
	if err != nil {
		log.Warn("state store unavailable", logging.F("error", err))
		return
	}
	defer st.Close()
	if err := st.TouchProject(ctx, project.ID, project.Name); err != nil {
		log.Warn("recents update failed", logging.F("error", err))
	}
	if model != "" {
		if err := st.SetSelectedModel(ctx, model); err != nil {
			log.Warn("model persist failed", logging.F("error", err))
		}
	}
}
