// Package storage persists conversations. Two backends implement the same
// Store interface: a single-file JSON store (the default) and a SQLite
// store. Neither makes durability guarantees beyond what the filesystem
// gives; there is no multi-process coordination.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatkit/model"
)

// ErrNotFound is returned when no conversation has the requested ID.
var ErrNotFound = errors.New("conversation not found")

// Conversation is one chat thread.
type Conversation struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Model     string          `json:"model"`
	Messages  []model.Message `json:"messages"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is the persistence surface the CLI works against.
type Store interface {
	// List returns all conversations, newest update first.
	List() ([]Conversation, error)
	Get(id string) (*Conversation, error)

	// Save inserts or replaces a conversation. A missing ID is assigned,
	// CreatedAt is set on first save and UpdatedAt on every save.
	Save(c *Conversation) error
	Delete(id string) error
	Rename(id, title string) error

	// CurrentID is the pointer to the last active conversation; it is
	// empty, not an error, when none was recorded.
	CurrentID() (string, error)
	SetCurrentID(id string) error

	Close() error
}

// JSONStore keeps every conversation in one JSON file holding the whole
// array, rewritten completely on each save. The current-conversation
// pointer lives next to it in a separate file.
type JSONStore struct {
	path        string
	currentPath string
}

// NewJSONStore creates the data directory if needed and returns a store
// backed by conversations.json inside it.
func NewJSONStore(dataDir string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &JSONStore{
		path:        filepath.Join(dataDir, "conversations.json"),
		currentPath: filepath.Join(dataDir, "current_conversation.id"),
	}, nil
}

func (s *JSONStore) readAll() ([]Conversation, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations file: %w", err)
	}

	var conversations []Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return nil, fmt.Errorf("failed to parse conversations file: %w", err)
	}
	return conversations, nil
}

func (s *JSONStore) writeAll(conversations []Conversation) error {
	data, err := json.MarshalIndent(conversations, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}
	// 0600: conversation history is sensitive.
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write conversations file: %w", err)
	}
	return nil
}

func (s *JSONStore) List() ([]Conversation, error) {
	conversations, err := s.readAll()
	if err != nil {
		return nil, err
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (s *JSONStore) Get(id string) (*Conversation, error) {
	conversations, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for i := range conversations {
		if conversations[i].ID == id {
			return &conversations[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *JSONStore) Save(c *Conversation) error {
	stampForSave(c)

	conversations, err := s.readAll()
	if err != nil {
		return err
	}

	replaced := false
	for i := range conversations {
		if conversations[i].ID == c.ID {
			conversations[i] = *c
			replaced = true
			break
		}
	}
	if !replaced {
		conversations = append(conversations, *c)
	}

	return s.writeAll(conversations)
}

func (s *JSONStore) Delete(id string) error {
	conversations, err := s.readAll()
	if err != nil {
		return err
	}

	kept := conversations[:0]
	found := false
	for _, c := range conversations {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return ErrNotFound
	}

	return s.writeAll(kept)
}

func (s *JSONStore) Rename(id, title string) error {
	c, err := s.Get(id)
	if err != nil {
		return err
	}
	c.Title = title
	return s.Save(c)
}

func (s *JSONStore) CurrentID() (string, error) {
	data, err := os.ReadFile(s.currentPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *JSONStore) SetCurrentID(id string) error {
	return os.WriteFile(s.currentPath, []byte(id), 0600)
}

func (s *JSONStore) Close() error {
	return nil
}

// stampForSave assigns the ID and timestamps every backend applies on save.
func stampForSave(c *Conversation) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.UpdatedAt = time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
}

// ExportToJSON writes one conversation to exportPath as indented JSON.
func ExportToJSON(store Store, id, exportPath string) error {
	c, err := store.Get(id)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// GenerateExportPath builds a default export path under ~/Downloads from
// the conversation title and the current time.
func GenerateExportPath(title string) string {
	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir = os.Getenv("USERPROFILE")
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("chatkit-%s-%s.json", SanitizeFilename(title), timestamp)
	return filepath.Join(homeDir, "Downloads", filename)
}

// SanitizeFilename replaces characters that are invalid in filenames.
func SanitizeFilename(name string) string {
	for _, bad := range []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " ", "\n", "\r"} {
		name = strings.ReplaceAll(name, bad, "-")
	}
	name = strings.Trim(name, "-.")
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "conversation"
	}
	return name
}

// GenerateTitle derives a conversation title from the first user message,
// falling back to a timestamp when there is nothing usable.
func GenerateTitle(firstMessage string) string {
	name := firstMessage
	if len(name) > 30 {
		name = name[:30] + "..."
	}
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Sprintf("Chat %s", time.Now().Format("Jan 2, 3:04 PM"))
	}
	return name
}
