package storage

import (
	"strings"
	"time"

	"chatkit/model"
)

// MessageMatch is one search hit inside a conversation.
type MessageMatch struct {
	ConversationID    string
	ConversationTitle string
	MessageIndex      int
	Role              string
	Content           string
	Preview           string
	Timestamp         time.Time
}

// SearchMessages finds case-insensitive substring matches of query within
// one conversation's messages. System messages are excluded.
func SearchMessages(messages []model.Message, query string) []MessageMatch {
	if query == "" {
		return nil
	}

	queryLower := strings.ToLower(query)
	var matches []MessageMatch

	for i, msg := range messages {
		if msg.Role == model.RoleSystem {
			continue
		}
		if !strings.Contains(strings.ToLower(msg.Content), queryLower) {
			continue
		}
		matches = append(matches, MessageMatch{
			MessageIndex: i,
			Role:         msg.Role,
			Content:      msg.Content,
			Preview:      preview(msg.Content),
			Timestamp:    msg.Timestamp,
		})
	}
	return matches
}

// SearchAll runs SearchMessages across every conversation in the store.
func SearchAll(store Store, query string) ([]MessageMatch, error) {
	if query == "" {
		return nil, nil
	}

	conversations, err := store.List()
	if err != nil {
		return nil, err
	}

	var matches []MessageMatch
	for _, c := range conversations {
		for _, m := range SearchMessages(c.Messages, query) {
			m.ConversationID = c.ID
			m.ConversationTitle = c.Title
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func preview(content string) string {
	if len(content) > 100 {
		return content[:100] + "..."
	}
	return content
}
