package notifier

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/V4T54L/service-portal/internal/domain"
)

// ConsoleNotifier prints a request summary block to a writer.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (n *ConsoleNotifier) Notify(ctx context.Context, note domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w,
		"--- SERVICE REQUEST ---\nReference: %s\nService: %s (%s)\nRole: %s\nCustomer: %s\nPhone: %s\nEmail: %s\n-----------------------\n",
		note.Reference,
		note.ServiceTitle,
		note.ServiceKey,
		note.Role,
		note.CustomerName,
		note.Phone,
		note.Email,
	)
	return err
}
