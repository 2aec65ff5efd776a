package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"text/tabwriter"
	"time"

	"vibe/internal/api"
	"vibe/internal/types"
)

const version = "dev"

func printProjects(output io.Writer, projects []api.Project) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tTYPE\tSTATUS\tPREVIEW")
	for _, project := range projects {
		preview := project.PreviewURL
		if preview == "" {
			preview = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", project.ID, project.Name, project.Type, project.Status, preview)
	}
	_ = writer.Flush()
}

func printVersions(output io.Writer, versions []api.Version) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tVERSION\tCREATED\tSUMMARY")
	for _, v := range versions {
		created := v.CreatedAt
		if created == "" {
			created = "-"
		}
		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\n", v.ID, v.Version, created, v.Summary)
	}
	_ = writer.Flush()
}

func printMessages(output io.Writer, messages []types.Message) {
	for _, msg := range messages {
		at := "-"
		if msg.Timestamp > 0 {
			at = time.UnixMilli(msg.Timestamp).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(output, "[%s] %s: %s\n", at, msg.Role, msg.Content)
	}
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
