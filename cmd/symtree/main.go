package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the top-level command structure for symtree.
type CLI struct {
	Debug      bool     `env:"SYMTREE_DEBUG" help:"Enable debug logging."`
	ConfigFile string   `name:"config" type:"path" env:"SYMTREE_CONFIG" help:"Config file (default ~/.config/symtree/config)."`
	URL        string   `name:"url" env:"SYMPHONY_URL" help:"Symphony API base URL, e.g. http://localhost:8082/v1alpha2."`
	User       string   `name:"user" env:"SYMPHONY_USER" help:"Symphony user name."`
	Password   string   `name:"password" env:"SYMPHONY_PASSWORD" help:"Symphony password."`
	Namespace  []string `name:"namespace" short:"n" env:"SYMPHONY_NAMESPACE" help:"Catalog namespace (repeatable)."`

	Tree      TreeCmd      `cmd:"" default:"withargs" help:"Print the catalog forest."`
	Fetch     FetchCmd     `cmd:"" help:"Fetch catalogs from Symphony and cache a snapshot."`
	Snapshots SnapshotsCmd `cmd:"" help:"List or prune cached snapshots."`
	Browse    BrowseCmd    `cmd:"" help:"Browse the catalog forest interactively."`
	Serve     ServeCmd     `cmd:"" help:"Serve forests over HTTP and MCP (SSE)."`
	MCP       MCPCmd       `cmd:"" name:"mcp" help:"Run the MCP server over stdio."`
}

// resolveConfig loads the config file and lays flag and environment values
// over it.
func (cli *CLI) resolveConfig() (*Config, error) {
	cfg, err := loadConfig(cli.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cli.URL != "" {
		cfg.Symphony.URL = cli.URL
	}
	if cli.User != "" {
		cfg.Symphony.User = cli.User
	}
	if cli.Password != "" {
		cfg.Symphony.Password = cli.Password
	}
	if len(cli.Namespace) > 0 {
		cfg.Symphony.Namespaces = cli.Namespace
	}
	return cfg, nil
}

func main() {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("symtree"),
		kong.Description("Arrange Symphony catalogs into parent/child trees."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			os.Exit(code)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "symtree: %v\n", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	setupLogger(cli.Debug)

	cfg, err := cli.resolveConfig()
	ctx.FatalIfErrorf(err)
	ctx.Bind(cfg)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
