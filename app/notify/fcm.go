package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultFCMEndpoint = "https://fcm.googleapis.com"
	defaultSendTimeout = 15 * time.Second
)

type FCMOptions struct {
	ProjectID string
	// Rate caps sends per second; zero or less means unlimited.
	Rate       float64
	Endpoint   string
	HTTPClient *http.Client
}

// FCMDispatcher sends topic messages through the Firebase Cloud Messaging
// HTTP v1 API.
type FCMDispatcher struct {
	projectID string
	endpoint  string
	client    *http.Client
	tokens    *tokenSource
	limiter   *rate.Limiter
}

func NewFCMDispatcherFromFile(path string, opts FCMOptions) (*FCMDispatcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	account, err := ParseServiceAccount(data)
	if err != nil {
		return nil, err
	}
	return NewFCMDispatcher(account, opts)
}

func NewFCMDispatcher(account *ServiceAccount, opts FCMOptions) (*FCMDispatcher, error) {
	projectID := opts.ProjectID
	if projectID == "" {
		projectID = account.ProjectID
	}
	if projectID == "" {
		return nil, fmt.Errorf("no FCM project id configured")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultSendTimeout}
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultFCMEndpoint
	}

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}

	return &FCMDispatcher{
		projectID: projectID,
		endpoint:  strings.TrimRight(endpoint, "/"),
		client:    client,
		tokens:    newTokenSource(account, client),
		limiter:   rate.NewLimiter(limit, 1),
	}, nil
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Topic        string            `json:"topic"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
	APNS         *fcmAPNS          `json:"apns,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

type fcmAndroid struct {
	Notification struct {
		Image string `json:"image"`
	} `json:"notification"`
}

type fcmAPNS struct {
	Payload struct {
		APS struct {
			MutableContent int `json:"mutable-content"`
		} `json:"aps"`
	} `json:"payload"`
	FCMOptions struct {
		Image string `json:"image"`
	} `json:"fcm_options"`
}

func (d *FCMDispatcher) Send(ctx context.Context, msg Message) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for send slot: %w", err)
	}

	token, err := d.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	body, err := json.Marshal(buildRequest(msg))
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	sendURL := fmt.Sprintf("%s/v1/projects/%s/messages:send", d.endpoint, d.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusBadRequest:
		return fmt.Errorf("%w: FCM returned %d: %s", ErrNotDelivered, resp.StatusCode, strings.TrimSpace(string(detail)))
	default:
		return fmt.Errorf("FCM returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}

func buildRequest(msg Message) fcmRequest {
	m := fcmMessage{
		Topic: msg.Topic,
		Notification: fcmNotification{
			Title: msg.Title,
			Body:  msg.Body,
			Image: msg.ImageURL,
		},
		Data: msg.Data,
	}

	if msg.ImageURL != "" {
		m.Android = &fcmAndroid{}
		m.Android.Notification.Image = msg.ImageURL

		m.APNS = &fcmAPNS{}
		m.APNS.Payload.APS.MutableContent = 1
		m.APNS.FCMOptions.Image = msg.ImageURL
	}

	return fcmRequest{Message: m}
}
