package models

import "time"

// Thread is a row of the threads index.
type Thread struct {
	ThreadID string `json:"thread_id"`
	Subject  string `json:"subject"`
}

// Message is a row of the messages index. ParentMessageID is nil for
// messages that start a thread.
type Message struct {
	MessageID       string     `json:"message_id"`
	ThreadID        string     `json:"thread_id"`
	ParentMessageID *string    `json:"parent_message_id,omitempty"`
	Filename        string     `json:"filename"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
}

// ThreadView is a loaded thread as served by the API.
type ThreadView struct {
	ThreadID string        `json:"thread_id"`
	Subject  string        `json:"subject"`
	Messages []MessageView `json:"messages"`
}

// MessageView is one message of a ThreadView.
type MessageView struct {
	MessageID   string       `json:"message_id"`
	Level       int          `json:"level"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Cc          []string     `json:"cc"`
	Date        string       `json:"date"`
	PrettyDate  string       `json:"pretty_date"`
	Tags        []string     `json:"tags"`
	IsPatch     bool         `json:"is_patch"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment describes an attachment part of a message.
type Attachment struct {
	PartID      int    `json:"part_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int    `json:"size_bytes"`
	IsInline    bool   `json:"is_inline"`
	ContentID   string `json:"content_id,omitempty"`
}
