package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chatkit/model"
)

// Both backends must behave identically behind the Store interface.
func storeBackends(t *testing.T) map[string]Store {
	t.Helper()

	jsonStore, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	sqliteStore, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	return map[string]Store{
		"json":   jsonStore,
		"sqlite": sqliteStore,
	}
}

func sampleConversation(title string) *Conversation {
	return &Conversation{
		Title: title,
		Model: "llama3.1:latest",
		Messages: []model.Message{
			model.NewMessage(model.RoleUser, "hello"),
			model.NewMessage(model.RoleAssistant, "hi there"),
		},
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			c := sampleConversation("first chat")
			if err := store.Save(c); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if c.ID == "" {
				t.Fatal("Save() did not assign an ID")
			}
			if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() {
				t.Error("Save() did not stamp timestamps")
			}

			got, err := store.Get(c.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.Title != "first chat" || got.Model != "llama3.1:latest" {
				t.Errorf("Get() = %+v", got)
			}
			if len(got.Messages) != 2 || got.Messages[1].Content != "hi there" {
				t.Errorf("Messages = %+v", got.Messages)
			}
		})
	}
}

func TestStoreSaveReplacesExisting(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			c := sampleConversation("chat")
			if err := store.Save(c); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			c.Messages = append(c.Messages, model.NewMessage(model.RoleUser, "more"))
			if err := store.Save(c); err != nil {
				t.Fatalf("second Save() error = %v", err)
			}

			all, err := store.List()
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("got %d conversations, want 1", len(all))
			}
			if len(all[0].Messages) != 3 {
				t.Errorf("got %d messages, want 3", len(all[0].Messages))
			}
		})
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			older := sampleConversation("older")
			if err := store.Save(older); err != nil {
				t.Fatal(err)
			}
			// Force distinct update stamps.
			time.Sleep(5 * time.Millisecond)
			newer := sampleConversation("newer")
			if err := store.Save(newer); err != nil {
				t.Fatal(err)
			}

			all, err := store.List()
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("got %d conversations, want 2", len(all))
			}
			if all[0].Title != "newer" {
				t.Errorf("order = %q, %q; want newest first", all[0].Title, all[1].Title)
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			c := sampleConversation("doomed")
			if err := store.Save(c); err != nil {
				t.Fatal(err)
			}

			if err := store.Delete(c.ID); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := store.Get(c.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get() after delete = %v, want ErrNotFound", err)
			}
			if err := store.Delete(c.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Delete() = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreRename(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			c := sampleConversation("old title")
			if err := store.Save(c); err != nil {
				t.Fatal(err)
			}

			if err := store.Rename(c.ID, "new title"); err != nil {
				t.Fatalf("Rename() error = %v", err)
			}
			got, err := store.Get(c.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Title != "new title" {
				t.Errorf("Title = %q, want new title", got.Title)
			}

			if err := store.Rename("missing", "x"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Rename(missing) = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreCurrentIDPointer(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()

			// Empty, not an error, before anything is recorded.
			id, err := store.CurrentID()
			if err != nil {
				t.Fatalf("CurrentID() error = %v", err)
			}
			if id != "" {
				t.Errorf("CurrentID() = %q, want empty", id)
			}

			if err := store.SetCurrentID("abc-123"); err != nil {
				t.Fatalf("SetCurrentID() error = %v", err)
			}
			id, err = store.CurrentID()
			if err != nil {
				t.Fatal(err)
			}
			if id != "abc-123" {
				t.Errorf("CurrentID() = %q, want abc-123", id)
			}
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestJSONStoreSingleFileLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save(sampleConversation("a")); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(sampleConversation("b")); err != nil {
		t.Fatal(err)
	}

	// Everything lives in one file holding the whole array.
	data, err := os.ReadFile(filepath.Join(dir, "conversations.json"))
	if err != nil {
		t.Fatalf("conversations.json missing: %v", err)
	}
	var all []Conversation
	if err := json.Unmarshal(data, &all); err != nil {
		t.Fatalf("file is not a JSON array: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("file holds %d conversations, want 2", len(all))
	}
}

func TestExportToJSON(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := sampleConversation("export me")
	if err := store.Save(c); err != nil {
		t.Fatal(err)
	}

	exportPath := filepath.Join(t.TempDir(), "sub", "out.json")
	if err := ExportToJSON(store, c.ID, exportPath); err != nil {
		t.Fatalf("ExportToJSON() error = %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	var exported Conversation
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if exported.Title != "export me" {
		t.Errorf("exported Title = %q", exported.Title)
	}
}

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short message", "Fix my tests", "Fix my tests"},
		{"newlines collapsed", "line one\nline two", "line one line two"},
		{"long message truncated", strings.Repeat("a", 40), strings.Repeat("a", 30) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateTitle(tt.in); got != tt.want {
				t.Errorf("GenerateTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	t.Run("empty falls back to timestamp", func(t *testing.T) {
		if got := GenerateTitle(""); !strings.HasPrefix(got, "Chat ") {
			t.Errorf("GenerateTitle(\"\") = %q, want Chat prefix", got)
		}
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"with spaces here", "with-spaces-here"},
		{"path/to:file*?", "path-to-file"},
		{"", "conversation"},
		{"---", "conversation"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
