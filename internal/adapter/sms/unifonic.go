package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://el.cloud.unifonic.com"
	DefaultSender  = "OTP"
	messagesPath   = "/rest/SMS/messages"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("sms gateway api key is not configured")

// Config holds the Unifonic account settings.
type Config struct {
	BaseURL string
	APIKey  string
	Sender  string
	Timeout time.Duration
}

type sendResponse struct {
	Success   any    `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// UnifonicClient sends text messages through the Unifonic REST API.
// It implements domain.SMSSender.
type UnifonicClient struct {
	httpClient *resty.Client
	apiKey     string
	sender     string
	logger     *slog.Logger
}

func NewUnifonicClient(cfg Config, logger *slog.Logger) *UnifonicClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Sender == "" {
		cfg.Sender = DefaultSender
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json")

	return &UnifonicClient{
		httpClient: client,
		apiKey:     cfg.APIKey,
		sender:     cfg.Sender,
		logger:     logger.With("component", "unifonic_client"),
	}
}

func (c *UnifonicClient) Send(ctx context.Context, recipient, body string) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	var result sendResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"AppSid":    c.apiKey,
			"Recipient": recipient,
			"Body":      body,
			"SenderID":  c.sender,
		}).
		SetResult(&result).
		Post(messagesPath)
	if err != nil {
		c.logger.Error("sms gateway call failed", "error", err)
		return fmt.Errorf("failed to call sms gateway: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("sms gateway rejected message", "status_code", resp.StatusCode(), "error_code", result.ErrorCode)
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode(), result.Message)
	}
	if ok, isBool := result.Success.(bool); isBool && !ok {
		return fmt.Errorf("sms gateway error %s: %s", result.ErrorCode, result.Message)
	}

	c.logger.Debug("sms sent", "recipient", recipient)
	return nil
}
