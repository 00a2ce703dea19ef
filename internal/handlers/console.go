package handlers

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/solatis/alertkeeper/internal/types"
)

// Renderer resolves a message key to the lines from the base alert up to
// that key. *render.Catalog implements it.
type Renderer interface {
	Escalation(key string) []string
}

// ConsoleHandler prints the rendered escalation for each action.
type ConsoleHandler struct {
	mu       sync.Mutex
	w        io.Writer
	renderer Renderer
}

func NewConsoleHandler(w io.Writer, renderer Renderer) *ConsoleHandler {
	return &ConsoleHandler{w: w, renderer: renderer}
}

func (h *ConsoleHandler) ID() string { return ConsoleID }

// Handle writes the lines under one lock so concurrent actions do not interleave.
func (h *ConsoleHandler) Handle(_ context.Context, action types.Action) error {
	lines := h.renderer.Escalation(action.MessageKey)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, line := range lines {
		if _, err := fmt.Fprintln(h.w, line); err != nil {
			return fmt.Errorf("console write: %w", err)
		}
	}
	return nil
}
