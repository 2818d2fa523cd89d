package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"supportdesk/pkg/agent"
	"supportdesk/pkg/api"
	"supportdesk/pkg/config"
	"supportdesk/pkg/llm"
	_ "supportdesk/pkg/llm/autoload"
	"supportdesk/pkg/monitor"
	"supportdesk/pkg/tools"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rootOptions struct {
	configPath string
	systemPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "supportctl",
		Short:         "Run customer support agent turns from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			monitor.SetupSlog(opts.logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.json", "application config file")
	cmd.PersistentFlags().StringVar(&opts.systemPath, "system", "system.json", "system config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(newAskCmd(opts), newToolsCmd())
	return cmd
}

type askOptions struct {
	history []string
	raw     bool
	timeout time.Duration
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the agent result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(root, opts.raw)
			if err != nil {
				return err
			}

			history, err := parseHistory(opts.history)
			if err != nil {
				return err
			}
			history.Add(llm.NewUserMessage(strings.Join(args, " ")))

			ctx := llm.WithDebugDir(cmd.Context(), uuid.NewString()[:8])
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			result, err := engine.Run(ctx, history)
			if err != nil {
				return fmt.Errorf("agent turn failed: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringArrayVar(&opts.history, "history", nil, "earlier turn as role:content, repeatable")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "dump raw provider responses under debug/responses")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "deadline for the whole turn")
	return cmd
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool schemas advertised to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := tools.NewDefaultRegistry(tools.NewDefaultOrderStore())
			return printJSON(cmd.OutOrStdout(), describeTools(registry.GetAll()))
		},
	}
}

type toolDescription struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func describeTools(all []api.Tool) []toolDescription {
	out := make([]toolDescription, 0, len(all))
	for _, t := range all {
		out = append(out, toolDescription{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  llm.ToolSchema(t),
		})
	}
	return out
}

// buildEngine wires an agent from the config files. A missing config.json
// falls back to the environment-driven defaults.
func buildEngine(opts *rootOptions, raw bool) (*agent.AgentEngine, error) {
	cfg, sysCfg, err := config.Load(opts.configPath, opts.systemPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if raw {
		sysCfg.DebugResponses = true
	}

	client, err := llm.NewFromConfig(cfg.LLM, sysCfg)
	if err != nil {
		return nil, fmt.Errorf("init LLM client: %w", err)
	}

	registry := tools.NewDefaultRegistry(tools.NewDefaultOrderStore())
	return agent.NewAgentEngine(client, registry, cfg.SystemPrompt, sysCfg), nil
}

// parseHistory turns role:content pairs into a history.
func parseHistory(entries []string) (*llm.ChatHistory, error) {
	history := llm.NewChatHistory()
	for _, e := range entries {
		role, content, ok := strings.Cut(e, ":")
		if !ok || !llm.ValidRole(role) || role == llm.RoleTool {
			return nil, fmt.Errorf("invalid --history entry %q: want role:content", e)
		}
		history.Add(llm.NewTextMessage(role, content))
	}
	return history, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
