package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
)

// SlackHook posts notifications to a Slack incoming webhook.
type SlackHook struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackHook creates a Slack webhook hook.
func NewSlackHook(webhookURL, channel string) *SlackHook {
	return &SlackHook{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackHook) Name() string { return "slack" }

func (s *SlackHook) Send(ctx context.Context, event Event) error {
	n := event.Notification

	fields := []slackField{
		{Title: "Alert", Value: event.AlertName, Short: true},
		{Title: "Kind", Value: string(event.Kind), Short: true},
	}
	for _, key := range highlightKeys(event.Kind) {
		if v, ok := n.Metadata[key]; ok {
			fields = append(fields, slackField{Title: key, Value: fmt.Sprint(v), Short: true})
		}
	}

	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color:  kindColor(event.Kind),
				Title:  n.Title,
				Text:   n.Message,
				Fields: fields,
				Footer: "PFM Alerts",
				Ts:     n.CreatedAt.Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func kindColor(kind model.AlertKind) string {
	switch kind {
	case model.KindAccountThreshold, model.KindTransactionLimit:
		return "#ff0000" // red
	case model.KindSpendingTarget, model.KindUpcomingBill:
		return "#ff9900" // orange
	}
	return "#36a64f" // green
}

// highlightKeys picks the metadata worth a Slack field for each kind.
func highlightKeys(kind model.AlertKind) []string {
	switch kind {
	case model.KindAccountThreshold:
		return []string{"account_name", "current_balance", "threshold"}
	case model.KindGoalMilestone:
		return []string{"goal_name", "progress_percentage"}
	case model.KindMerchantName:
		return []string{"merchant_name", "amount"}
	case model.KindSpendingTarget:
		return []string{"budget_name", "percent_used"}
	case model.KindTransactionLimit:
		return []string{"amount", "limit"}
	case model.KindUpcomingBill:
		return []string{"bill_name", "due_date"}
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
