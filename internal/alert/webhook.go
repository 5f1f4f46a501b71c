package alert

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

type WebhookConfig struct {
	URL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// Retries bounds in-call retries on transport errors and 5xx answers.
	Retries int
}

type WebhookPublisher struct {
	http *resty.Client
	url  string
}

func NewWebhookPublisher(cfg WebhookConfig) *WebhookPublisher {
	r := resty.New()
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		r.SetAuthToken(cfg.Token)
	}
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}
	r.SetRetryCount(cfg.Retries)
	r.SetRetryWaitTime(200 * time.Millisecond)
	r.SetRetryMaxWaitTime(2 * time.Second)
	r.AddRetryCondition(func(resp *resty.Response, err error) bool {
		return err != nil || resp.StatusCode() >= http.StatusInternalServerError
	})
	return &WebhookPublisher{http: r, url: cfg.URL}
}

func (p *WebhookPublisher) Publish(ctx context.Context, msg Message) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", msg.ID.String()).
		SetBody(msg.Payload()).
		Post(p.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
