package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"ragpipeline/internal/config"
	"ragpipeline/internal/logging"
	"ragpipeline/internal/service"
	"ragpipeline/internal/tui"
)

type rootFlags struct {
	configPath  string
	file        string
	query       string
	interactive bool
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Answer a question from a text file with retrieval-augmented generation",
		Long: `Loads a text file, splits it into overlapping chunks, embeds them into a
persistent vector store and asks a chat model to answer the query using the
retrieved chunks as context.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRoot(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/rag/config.yaml)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "text file to index (overrides input.path)")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "question to ask (overrides query)")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "index once, then ask questions in a terminal UI")
	cmd.AddCommand(newConfigCmd())
	return cmd
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

func runRoot(ctx context.Context, out io.Writer, f rootFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.file != "" {
		cfg.Input.Path = f.file
	}
	if f.query != "" {
		cfg.Query = f.query
	}
	if err := logging.Init(cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	if cfg.Chat.APIKey() == "" {
		fmt.Fprintf(out, "WARNING: %s not found in environment. Please ensure it is set in .env or environment variables.\n", cfg.Chat.APIKeyEnv)
	}

	if f.interactive {
		return runInteractive(ctx, out, cfg)
	}

	rule := strings.Repeat("-", 30)
	fmt.Fprintf(out, "Question: %s\n", cfg.Query)
	fmt.Fprintln(out, rule)

	answer, err := answerOnce(ctx, out, cfg)
	if err != nil {
		logger.Errorw("pipeline failed", "error", err)
		fmt.Fprintf(out, "An error occurred: %v\n", err)
		return nil
	}
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Answer: %s\n", answer)
	return nil
}

func answerOnce(ctx context.Context, out io.Writer, cfg *config.AppConfig) (string, error) {
	p, err := buildPipeline(ctx, cfg, out)
	if err != nil {
		return "", err
	}
	defer p.Close()
	return p.Run(ctx, cfg.Query)
}

func runInteractive(ctx context.Context, out io.Writer, cfg *config.AppConfig) error {
	p, err := buildPipeline(ctx, cfg, out)
	if err != nil {
		fmt.Fprintf(out, "An error occurred: %v\n", err)
		return nil
	}
	defer p.Close()
	if err := p.Prepare(ctx); err != nil {
		fmt.Fprintf(out, "An error occurred: %v\n", err)
		return nil
	}

	m := tui.New(ctx, p, fmt.Sprintf("%s  (%s store, %s embedder)", cfg.Input.Path, cfg.VectorStore.Type, cfg.Embedder.Type))
	if _, err := tea.NewProgram(m).Run(); err != nil {
		return err
	}
	return nil
}

var _ tui.RAGPort = (*service.Pipeline)(nil)
