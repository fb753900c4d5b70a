package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v3"

	"chatkit/config"
	"chatkit/markdown"
	"chatkit/model"
	"chatkit/provider"
	"chatkit/storage"
)

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	roleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	thinkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	toolStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func runChat(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	prov, err := provider.NewProvider(providerConfig(cfg))
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	conv := &storage.Conversation{Model: prov.GetModel()}
	if cmd.Bool("continue") {
		if resumed := resumeCurrent(store); resumed != nil {
			conv = resumed
			fmt.Println(infoStyle.Render(fmt.Sprintf("resumed %q (%d messages)", conv.Title, len(conv.Messages))))
		}
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	historyFile := filepath.Join(config.GetConfigDir(), "history")
	loadHistory(line, historyFile)
	defer saveHistory(line, historyFile)

	fmt.Println(infoStyle.Render(fmt.Sprintf("chatkit %s | %s | %s | /help for commands",
		version, cfg.Provider, prov.GetDisplayName())))

	for {
		input, err := line.Prompt(promptStyle.Render("> "))
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			// Ctrl-D or closed input
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(ctx, input, conv, store, prov); quit {
				break
			}
			continue
		}

		if len(conv.Messages) == 0 && cfg.SystemPrompt != "" {
			conv.Messages = append(conv.Messages, model.NewMessage(model.RoleSystem, cfg.SystemPrompt))
		}
		conv.Messages = append(conv.Messages, model.NewMessage(model.RoleUser, input))

		reply, err := streamReply(ctx, prov, conv.Messages)
		if err != nil {
			// No message on any failure. Cancellation is not an error to the
			// user, just an abandoned turn.
			conv.Messages = conv.Messages[:len(conv.Messages)-1]
			if errors.Is(err, context.Canceled) {
				fmt.Println(infoStyle.Render("(cancelled)"))
				continue
			}
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			continue
		}

		conv.Messages = append(conv.Messages, *reply)
		if conv.Title == "" {
			conv.Title = storage.GenerateTitle(input)
		}
		conv.Model = prov.GetModel()
		if err := store.Save(conv); err != nil {
			slog.Warn("failed to save conversation", "error", err)
		} else if err := store.SetCurrentID(conv.ID); err != nil {
			slog.Warn("failed to set current conversation", "error", err)
		}
	}

	fmt.Println()
	return nil
}

// streamReply runs one Chat call, printing deltas as they arrive. Ctrl-C
// during the stream cancels the request; the caller sees context.Canceled
// and no message.
func streamReply(parent context.Context, prov model.Provider, messages []model.Message) (*model.Message, error) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var thinkingSeen int
	announced := make(map[string]model.ToolStatus)

	handlers := model.StreamHandlers{
		OnText: func(chunk string) {
			fmt.Print(chunk)
		},
		OnThinking: func(thinking string) {
			// Cumulative snapshots; print only the unseen tail.
			if len(thinking) > thinkingSeen {
				fmt.Print(thinkingStyle.Render(thinking[thinkingSeen:]))
				thinkingSeen = len(thinking)
			}
		},
		OnToolCall: func(call model.ToolCall) {
			if announced[call.ID] == call.Status {
				return
			}
			announced[call.ID] = call.Status
			if call.Status == model.StatusComplete {
				fmt.Println()
				fmt.Println(toolStyle.Render(toolCard(call)))
			}
		},
	}

	reply, err := prov.Chat(ctx, messages, handlers)
	fmt.Println()
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func toolCard(call model.ToolCall) string {
	args := ""
	if len(call.Input) > 0 {
		if b, err := json.Marshal(call.Input); err == nil {
			args = string(b)
		}
	}
	if len(args) > 120 {
		args = args[:117] + "..."
	}
	return fmt.Sprintf("[tool] %s %s", call.Name, args)
}

func handleCommand(ctx context.Context, input string, conv *storage.Conversation, store storage.Store, prov model.Provider) (quit bool) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/new":
		*conv = storage.Conversation{Model: prov.GetModel()}
		fmt.Println(infoStyle.Render("started a new conversation"))

	case "/model":
		if arg == "" {
			fmt.Println(infoStyle.Render("model: " + prov.GetDisplayName()))
			break
		}
		prov.SetModel(arg)
		fmt.Println(infoStyle.Render("model set to " + prov.GetDisplayName()))

	case "/models":
		models, err := prov.ListModels(ctx)
		if err != nil {
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			break
		}
		for _, m := range models {
			fmt.Println("  " + m.Name)
		}

	case "/rename":
		if arg == "" {
			fmt.Println(errorStyle.Render("usage: /rename <title>"))
			break
		}
		conv.Title = arg
		if conv.ID != "" {
			if err := store.Rename(conv.ID, arg); err != nil {
				fmt.Println(errorStyle.Render("error: " + err.Error()))
				break
			}
		}
		fmt.Println(infoStyle.Render("renamed to " + arg))

	case "/show":
		printConversation(conv)

	case "/help":
		fmt.Println(infoStyle.Render(strings.TrimSpace(`
/new            start a new conversation
/model [name]   show or switch the active model
/models         list available models
/rename <title> rename the current conversation
/show           replay the conversation, markdown rendered
/quit           exit`)))

	default:
		fmt.Println(errorStyle.Render("unknown command " + cmd + " (try /help)"))
	}
	return false
}

// printConversation replays a stored conversation with assistant messages
// rendered through the markdown renderer.
func printConversation(conv *storage.Conversation) {
	for _, msg := range conv.Messages {
		fmt.Println(roleStyle.Render(msg.Role + ":"))
		if msg.Thinking != "" {
			fmt.Println(thinkingStyle.Render(msg.Thinking))
		}
		for _, call := range msg.ToolCalls {
			fmt.Println(toolStyle.Render(toolCard(call)))
		}
		if msg.Content != "" {
			if msg.Role == model.RoleAssistant {
				fmt.Println(markdown.RenderTerminal(msg.Content))
			} else {
				fmt.Println(msg.Content)
			}
		}
		fmt.Println()
	}
}

func resumeCurrent(store storage.Store) *storage.Conversation {
	id, err := store.CurrentID()
	if err != nil || id == "" {
		return nil
	}
	conv, err := store.Get(id)
	if err != nil {
		return nil
	}
	return conv
}

func loadHistory(line *liner.State, path string) {
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

func saveHistory(line *liner.State, path string) {
	if err := config.EnsureDir(filepath.Dir(path)); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}
