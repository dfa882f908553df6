package services

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/containrrr/shoutrrr"

	"github.com/sentra-sec/sentra/backend/internal/config"
	"github.com/sentra-sec/sentra/backend/internal/logger"
)

// NotificationSink receives block notifications. Delivery is best-effort: a
// block is complete once the registry and audit log are updated, whether or not
// the operator was notified.
type NotificationSink interface {
	Notify(ip string, until time.Time) error
}

// Notifier fans a block notice out to the configured shoutrrr URLs and, when
// SMTP is configured, to the alert receiver mailbox.
type Notifier struct {
	urls []string
	smtp config.SMTPConfig
}

func NewNotifier(cfg config.Config) *Notifier {
	return &Notifier{urls: cfg.NotifyURLs, smtp: cfg.SMTP}
}

// Notify sends the block notice on every configured channel. Channels are
// independent; a failing channel does not stop the others. The combined error
// is informational only, callers log and drop it.
func (n *Notifier) Notify(ip string, until time.Time) error {
	subject := fmt.Sprintf("Sentra Alert: IP Blocked [%s]", ip)
	body := fmt.Sprintf("The IP address %s was blocked until %s due to suspicious activity.",
		ip, until.UTC().Format(time.RFC3339))

	var failures []string
	for _, url := range n.urls {
		if err := shoutrrr.Send(url, subject+"\n\n"+body); err != nil {
			failures = append(failures, err.Error())
		}
	}

	if n.smtp.Host != "" {
		if err := n.sendMail(subject, body); err != nil {
			failures = append(failures, err.Error())
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("notification delivery: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (n *Notifier) sendMail(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.smtp.Host, n.smtp.Port)

	var auth smtp.Auth
	if n.smtp.Username != "" {
		auth = smtp.PlainAuth("", n.smtp.Username, n.smtp.Password, n.smtp.Host)
	}

	from := n.smtp.From
	if from == "" {
		from = n.smtp.Username
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		from, n.smtp.To, subject, body)

	if err := smtp.SendMail(addr, auth, from, []string{n.smtp.To}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// dispatchNotification runs the sink detached with a bounded wait so slow or
// failing delivery never delays the observation path. Errors are logged, never
// propagated.
func dispatchNotification(sink NotificationSink, ip string, until time.Time, timeout time.Duration) {
	if sink == nil {
		return
	}

	go func() {
		done := make(chan error, 1)
		go func() {
			done <- sink.Notify(ip, until)
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.WithFields(map[string]interface{}{"ip": ip}).
					WithError(err).Warn("block notification failed")
			}
		case <-time.After(timeout):
			logger.WithFields(map[string]interface{}{"ip": ip}).
				Warn("block notification timed out")
		}
	}()
}
