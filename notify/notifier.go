package notify

import (
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"sublet-scraper/models"
	"sublet-scraper/utils"
)

// MessageSender sends one outbound message and returns the provider's
// message ID.
type MessageSender interface {
	Send(to, from, body string) (string, error)
}

// TwilioSender implements MessageSender with the Twilio REST API.
type TwilioSender struct {
	client *twilio.RestClient
}

// NewTwilioSender creates a sender authenticated with the given account
// SID and auth token.
func NewTwilioSender(accountSID, authToken string) *TwilioSender {
	return &TwilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

func (t *TwilioSender) Send(to, from, body string) (string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("twilio: create message: %w", err)
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("twilio: response carried no message sid")
	}
	return *resp.Sid, nil
}

// Notifier sends one SMS per new listing, with a fixed delay between sends
// to stay under provider rate limits. Send failures are logged and do not
// stop the remaining messages.
type Notifier struct {
	sender MessageSender
	logger *utils.Logger
	to     string
	from   string
	queue  *utils.WorkerPool
}

// NewNotifier wires a notifier over the given sender. delayMs is the
// minimum interval between sends.
func NewNotifier(sender MessageSender, logger *utils.Logger, to, from string, delayMs int) *Notifier {
	return &Notifier{
		sender: sender,
		logger: logger,
		to:     to,
		from:   from,
		queue:  utils.NewWorkerPool(1, delayMs),
	}
}

// NotifyAll sends one message per record, in order.
func (n *Notifier) NotifyAll(records []*models.ListingRecord) {
	for i, rec := range records {
		i, rec := i, rec
		n.queue.Submit(func() {
			body := FormatMessage(i+1, rec)
			sid, err := n.sender.Send(n.to, n.from, body)
			if err != nil {
				n.logger.Error("[notify] Message %d failed: %v", i+1, err)
				return
			}
			n.logger.Info("[notify] Sent message %d: SID=%s", i+1, sid)
		})
	}
	n.queue.Wait()
}

// FormatMessage renders the SMS body for one listing.
func FormatMessage(n int, rec *models.ListingRecord) string {
	if rec.Price != nil {
		return fmt.Sprintf("Link %d: %s ($%d)", n, rec.Link, *rec.Price)
	}
	return fmt.Sprintf("Link %d: %s", n, rec.Link)
}
