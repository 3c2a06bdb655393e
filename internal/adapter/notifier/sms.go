package notifier

import (
	"context"
	"fmt"

	"github.com/V4T54L/service-portal/internal/domain"
)

const requestSMSFormat = "Your request for %s was received. Reference: %s"

// SMSNotifier texts the customer their reference. Customers without a phone
// number are skipped.
type SMSNotifier struct {
	sender domain.SMSSender
}

func NewSMSNotifier(sender domain.SMSSender) *SMSNotifier {
	return &SMSNotifier{sender: sender}
}

func (n *SMSNotifier) Notify(ctx context.Context, note domain.Notification) error {
	if note.Phone == "" {
		return nil
	}
	return n.sender.Send(ctx, note.Phone, fmt.Sprintf(requestSMSFormat, note.ServiceTitle, note.Reference))
}
