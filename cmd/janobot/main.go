// Command janobot runs the agent service.
//
// Usage:
//
//	janobot serve --config config.yaml
//	janobot ingest ./docs --pattern "*.md"
//	janobot validate --config config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/janobot/janobot/pkg/config"
	"github.com/janobot/janobot/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Serve    ServeCmd    `cmd:"" default:"1" help:"Start the HTTP server."`
	Ingest   IngestCmd   `cmd:"" help:"Ingest documents into the knowledge base."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// loadConfig loads the config file, or the zero-config defaults when no
// path is given.
func (cli *CLI) loadConfig() (*config.Config, error) {
	if cli.Config != "" {
		return config.Load(cli.Config)
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	return cfg, nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("janobot"),
		kong.Description("JanoBot - an LLM agent service with RAG and tool calling"),
		kong.UsageOnError(),
	)

	output := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(logger.ParseLevel(cli.LogLevel), output, cli.LogFormat)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
