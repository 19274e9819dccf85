package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/gomail.v2"
)

// smtpEmailSender delivers risk alerts over SMTP.
//
// Env:
// - SMTP_HOST, SMTP_PORT (default 587)
// - SMTP_USER, SMTP_PASSWORD
// - SMTP_FROM (default no-reply@riskradar.app)
type smtpEmailSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
}

func newSmtpEmailSender() *smtpEmailSender {
	port := 587
	if v := strings.TrimSpace(os.Getenv("SMTP_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			port = n
		}
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "no-reply@riskradar.app"
	}
	return &smtpEmailSender{
		host:     os.Getenv("SMTP_HOST"),
		port:     port,
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     from,
	}
}

func (s *smtpEmailSender) SendRiskAlert(ctx context.Context, recipient string, n Notification) error {
	if s.host == "" {
		return errors.New("SMTP_HOST is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", fmt.Sprintf("%s risk order %s (%s)", strings.ToUpper(string(n.RiskLevel)), n.OrderNumber, n.ShopId))
	m.SetBody("text/html", renderAlertBody(n))

	d := gomail.NewDialer(s.host, s.port, s.user, s.password)
	return d.DialAndSend(m)
}

// renderAlertBody uses the merchant's custom template when one is set,
// otherwise the built-in layout. Template placeholders: {{order_number}},
// {{risk_level}}, {{risk_score}}, {{risk_factors}}, {{total_price}},
// {{customer_name}}.
func renderAlertBody(n Notification) string {
	if strings.TrimSpace(n.CustomTemplate) != "" {
		return strings.NewReplacer(
			"{{order_number}}", n.OrderNumber,
			"{{risk_level}}", string(n.RiskLevel),
			"{{risk_score}}", strconv.Itoa(n.RiskScore),
			"{{risk_factors}}", strings.Join(n.RiskFactors, ", "),
			"{{total_price}}", n.TotalPrice+" "+n.Currency,
			"{{customer_name}}", n.CustomerName,
		).Replace(n.CustomTemplate)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Order %s flagged as %s risk</h2>", n.OrderNumber, n.RiskLevel)
	fmt.Fprintf(&b, "<p>Risk score: <strong>%d</strong></p>", n.RiskScore)
	fmt.Fprintf(&b, "<p>Order total: %s %s</p>", n.TotalPrice, n.Currency)
	if n.CustomerName != "" {
		fmt.Fprintf(&b, "<p>Customer: %s</p>", n.CustomerName)
	}
	if len(n.RiskFactors) > 0 {
		b.WriteString("<ul>")
		for _, f := range n.RiskFactors {
			fmt.Fprintf(&b, "<li>%s</li>", f)
		}
		b.WriteString("</ul>")
	}
	fmt.Fprintf(&b, "<p>Recommended status: %s</p>", n.Status)
	return b.String()
}
