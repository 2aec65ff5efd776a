package main

import (
	"fmt"
	"os"
)

const usageText = `vibe is a terminal client for the vibe app builder.

Usage:
  vibe <command> [flags]

Commands:
  chat      open the chat UI for a project
  projects  list projects
  create    create a project
  delete    delete a project
  rename    rename a project
  history   print conversation history
  clear     clear conversation history
  versions  list project versions
  rollback  roll a project back to a version
  stop      stop the agent for a project
  config    print effective configuration
  help      show help

Flags:
  -h, --help   show help

Examples:
  vibe chat --project prj_123
  vibe create --name "todo app" --type miniapp
  vibe history --project prj_123 --limit 50
  vibe rollback --project prj_123 --version v7
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	wiring := defaultCommandWiring(os.Stdout, os.Stderr)
	commands := buildCommands(wiring)

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}
