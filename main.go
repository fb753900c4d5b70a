package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"chatkit/config"
	"chatkit/provider"
	"chatkit/storage"
)

const version = "0.1.0"

func main() {
	cmd := &cli.Command{
		Name:    "chatkit",
		Usage:   "streaming chat with LLM providers from the terminal",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Usage: "provider: anthropic, openai, openrouter, bedrock or ollama"},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model to use (overrides settings.toml)"},
			&cli.BoolFlag{Name: "thinking", Usage: "request the model's reasoning channel where supported"},
			&cli.BoolFlag{Name: "continue", Aliases: []string{"c"}, Usage: "resume the most recent conversation"},
		},
		Action: runChat,
		Commands: []*cli.Command{
			modelsCommand(),
			pingCommand(),
			conversationsCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings.toml plus environment overrides, then lets
// command-line flags win over both.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.InitLogging(os.Stderr)

	if v := cmd.String("provider"); v != "" {
		cfg.Provider = v
	}
	if v := cmd.String("model"); v != "" {
		cfg.Model = v
	}
	if cmd.Bool("thinking") {
		cfg.Thinking = true
	}
	return cfg, nil
}

func providerConfig(cfg *config.Config) provider.Config {
	ptype := provider.MapProviderIDToType(cfg.Provider)
	pc := provider.Config{
		Type:      ptype,
		Model:     cfg.Model,
		BaseURL:   cfg.BaseURL,
		Region:    cfg.BedrockRegion,
		MaxTokens: cfg.MaxTokens,
		Thinking:  cfg.Thinking,
		APIKey:    cfg.APIKey(string(ptype)),
	}
	if ptype == provider.ProviderTypeOllama && pc.BaseURL == "" {
		pc.BaseURL = cfg.OllamaHost
	}
	return pc
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage {
	case "", "json":
		return storage.NewJSONStore(cfg.DataDir())
	case "sqlite":
		return storage.NewSQLiteStore(cfg.DataDir())
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want json or sqlite)", cfg.Storage)
	}
}

func modelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "list models available from the configured provider",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			models, err := provider.FetchModels(ctx, providerConfig(cfg))
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tID\tSIZE")
			for _, m := range models {
				size := "-"
				if m.Size > 0 {
					size = humanize.Bytes(uint64(m.Size))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.InternalName, size)
			}
			return w.Flush()
		},
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "check connectivity and credentials for the configured provider",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := provider.Validate(ctx, providerConfig(cfg)); err != nil {
				return err
			}
			fmt.Printf("%s: ok\n", cfg.Provider)
			return nil
		},
	}
}

func conversationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "conversations",
		Aliases: []string{"conv"},
		Usage:   "manage stored conversations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list conversations, newest first",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					store, err := openStoreFromCmd(cmd)
					if err != nil {
						return err
					}
					defer store.Close()

					conversations, err := store.List()
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tTITLE\tMODEL\tMESSAGES\tUPDATED")
					for _, c := range conversations {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
							shortID(c.ID), c.Title, c.Model, len(c.Messages),
							c.UpdatedAt.Format("2006-01-02 15:04"))
					}
					return w.Flush()
				},
			},
			{
				Name:      "show",
				Usage:     "print a conversation, markdown rendered",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					store, err := openStoreFromCmd(cmd)
					if err != nil {
						return err
					}
					defer store.Close()

					conv, err := resolveConversation(store, cmd.Args().First())
					if err != nil {
						return err
					}
					printConversation(conv)
					return nil
				},
			},
			{
				Name:      "rm",
				Usage:     "delete a conversation",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					store, err := openStoreFromCmd(cmd)
					if err != nil {
						return err
					}
					defer store.Close()

					conv, err := resolveConversation(store, cmd.Args().First())
					if err != nil {
						return err
					}
					if err := store.Delete(conv.ID); err != nil {
						return err
					}
					fmt.Printf("deleted %s (%s)\n", shortID(conv.ID), conv.Title)
					return nil
				},
			},
			{
				Name:      "export",
				Usage:     "export a conversation to a JSON file",
				ArgsUsage: "<id> [path]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					store, err := openStoreFromCmd(cmd)
					if err != nil {
						return err
					}
					defer store.Close()

					conv, err := resolveConversation(store, cmd.Args().First())
					if err != nil {
						return err
					}

					path := cmd.Args().Get(1)
					if path == "" {
						path = storage.GenerateExportPath(conv.Title)
					}
					if err := storage.ExportToJSON(store, conv.ID, path); err != nil {
						return err
					}
					fmt.Printf("exported to %s\n", path)
					return nil
				},
			},
			{
				Name:      "search",
				Usage:     "search message contents across all conversations",
				ArgsUsage: "<query>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					query := cmd.Args().First()
					if query == "" {
						return fmt.Errorf("search query required")
					}

					store, err := openStoreFromCmd(cmd)
					if err != nil {
						return err
					}
					defer store.Close()

					matches, err := storage.SearchAll(store, query)
					if err != nil {
						return err
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "CONVERSATION\tROLE\tMATCH")
					for _, m := range matches {
						fmt.Fprintf(w, "%s\t%s\t%s\n", m.ConversationTitle, m.Role, m.Preview)
					}
					return w.Flush()
				},
			},
		},
	}
}

func openStoreFromCmd(cmd *cli.Command) (storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

// resolveConversation accepts a full conversation ID or a unique prefix.
func resolveConversation(store storage.Store, ref string) (*storage.Conversation, error) {
	if ref == "" {
		return nil, fmt.Errorf("conversation id required")
	}

	if conv, err := store.Get(ref); err == nil {
		return conv, nil
	}

	conversations, err := store.List()
	if err != nil {
		return nil, err
	}

	var found *storage.Conversation
	for i := range conversations {
		if strings.HasPrefix(conversations[i].ID, ref) {
			if found != nil {
				return nil, fmt.Errorf("ambiguous conversation id %q", ref)
			}
			found = &conversations[i]
		}
	}
	if found == nil {
		return nil, fmt.Errorf("no conversation matching %q", ref)
	}
	return found, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
