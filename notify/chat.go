package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// httpChatSender posts a Slack-compatible message to the store's configured
// chat webhook.
type httpChatSender struct {
	client *http.Client
}

func newHttpChatSender() *httpChatSender {
	return &httpChatSender{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type chatMessage struct {
	Text string `json:"text"`
}

func (s *httpChatSender) SendRiskAlert(ctx context.Context, webhookUrl string, n Notification) error {
	var text strings.Builder
	fmt.Fprintf(&text, ":rotating_light: Order %s flagged as *%s* risk (score %d)\n", n.OrderNumber, n.RiskLevel, n.RiskScore)
	fmt.Fprintf(&text, "Total: %s %s", n.TotalPrice, n.Currency)
	if n.CustomerName != "" {
		fmt.Fprintf(&text, " | Customer: %s", n.CustomerName)
	}
	if len(n.RiskFactors) > 0 {
		fmt.Fprintf(&text, "\nFactors: %s", strings.Join(n.RiskFactors, "; "))
	}
	fmt.Fprintf(&text, "\nRecommended status: %s", n.Status)

	body, err := json.Marshal(chatMessage{Text: text.String()})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookUrl, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chat webhook returned %d", resp.StatusCode)
	}
	return nil
}
