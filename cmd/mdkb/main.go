// Package main is the entry point for the mdkb server and CLI.
//
// mdkb exposes a directory of markdown files as an MCP server: six file
// tools plus a discoverable usage-guide resource. The CLI also offers a few
// local commands for inspecting the knowledge base from a shell.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mdkb/internal/config"
	"mdkb/internal/logging"
	"mdkb/internal/mcp"
	"mdkb/internal/store"
	"mdkb/internal/ui"
)

func main() {
	logger := logging.NewAppLogger()

	if err := newRootCmd(logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	rootDir    string
}

func newRootCmd(logger *logging.AppLogger) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "mdkb",
		Short:         "Markdown knowledge base MCP server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to configuration file")
	cmd.PersistentFlags().StringVar(&flags.rootDir, "root", "", "knowledge base root directory (overrides config)")

	cmd.AddCommand(
		newServeCmd(logger, flags),
		newGuideCmd(logger, flags),
		newShowCmd(logger, flags),
		newListCmd(logger, flags),
	)

	return cmd
}

// loadConfig resolves configuration from the explicit flag path, the
// standard location, and command-line overrides, in that order of
// precedence (flags win).
func loadConfig(flags *rootFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if flags.configPath != "" {
		cfg, err = config.LoadFrom(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if flags.rootDir != "" {
		cfg.KnowledgeBase.RootDirectory = flags.rootDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(flags *rootFlags, logger *logging.AppLogger) (*store.Store, *config.Config, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}

	logger.SetLevel(cfg.Server.LogLevel)

	st, err := store.New(cfg.KnowledgeBase.RootDirectory, cfg.KnowledgeBase.SystemDirectory, logger)
	if err != nil {
		return nil, nil, err
	}
	return st, cfg, nil
}

func newServeCmd(logger *logging.AppLogger, flags *rootFlags) *cobra.Command {
	var useHTTP bool
	var addr string
	var strict bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the knowledge base over MCP (stdio by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cfg, err := openStore(flags, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.EnsureGuide(); err != nil {
				return fmt.Errorf("cannot prepare usage guide: %w", err)
			}

			srv := mcp.NewServer(st, logger, mcp.Options{Strict: strict})

			if useHTTP || addr != "" {
				if addr == "" {
					addr = cfg.Addr()
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return srv.StartHTTP(ctx, addr)
			}
			return srv.Start()
		},
	}

	cmd.Flags().BoolVar(&useHTTP, "http", false, "serve over streamable HTTP instead of stdio")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (default: config host:port)")
	cmd.Flags().BoolVar(&strict, "strict", false, "return typed protocol errors instead of textual error results")

	return cmd
}

func newGuideCmd(logger *logging.AppLogger, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "guide",
		Short: "Regenerate the LLM usage guide from the current directory tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(flags, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.RegenerateGuide(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Regenerated guide:", st.GuidePath())
			return nil
		},
	}
}

func newShowCmd(logger *logging.AppLogger, flags *rootFlags) *cobra.Command {
	var width int
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Render a document to the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(flags, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			doc, err := st.Read(args[0])
			if err != nil {
				return err
			}

			if raw {
				fmt.Fprint(cmd.OutOrStdout(), doc.Body)
				return nil
			}

			rendered, err := ui.RenderMarkdown(doc.Body, width)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "wrap width (default: terminal default)")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw body without terminal styling")

	return cmd
}

func newListCmd(logger *logging.AppLogger, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [pattern]",
		Short: "List markdown files in the knowledge base",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(flags, logger)
			if err != nil {
				return err
			}
			defer st.Close()

			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}

			files, err := st.List(pattern)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
}
