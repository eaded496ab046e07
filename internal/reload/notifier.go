package reload

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// Kind selects how a connected browser reacts to a message.
type Kind string

const (
	KindReload Kind = "reload"
	KindCSS    Kind = "css"
	KindError  Kind = "error"
)

// Message is the payload delivered to every reload channel.
type Message struct {
	Kind  Kind     `json:"kind"`
	ID    string   `json:"id"`
	Paths []string `json:"paths,omitempty"`
	Error string   `json:"error,omitempty"`
}

// NewMessage returns a message of the given kind with a fresh ID.
func NewMessage(kind Kind, paths ...string) Message {
	return Message{Kind: kind, ID: uuid.NewString(), Paths: paths}
}

// ErrorMessage builds an error notice for a failed rebuild.
func ErrorMessage(err error) Message {
	m := NewMessage(KindError)
	if err != nil {
		m.Error = err.Error()
	}
	return m
}

func (m Message) encode() ([]byte, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return json.Marshal(m)
}

// Notifier delivers reload messages. Having no listeners is not an error.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
