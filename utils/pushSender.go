package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// ExpoPushSender delivers push notifications through the Expo push API.
type ExpoPushSender struct {
	url    string
	client *http.Client
}

func NewExpoPushSender(url string, client *http.Client) *ExpoPushSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &ExpoPushSender{url: url, client: client}
}

type expoMessage struct {
	To       string                 `json:"to"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Sound    string                 `json:"sound"`
	Priority string                 `json:"priority"`
}

type expoTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type expoResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Send posts a single message. Any non-ok ticket is an error.
func (s *ExpoPushSender) Send(ctx context.Context, token, title, body string, data map[string]interface{}) error {
	payload, err := json.Marshal(expoMessage{
		To:       token,
		Title:    title,
		Body:     body,
		Data:     data,
		Sound:    "default",
		Priority: "high",
	})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read push response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("push provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded expoResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode push response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return fmt.Errorf("push provider error %s: %s", decoded.Errors[0].Code, decoded.Errors[0].Message)
	}

	var ticket expoTicket
	if err := json.Unmarshal(decoded.Data, &ticket); err != nil {
		var tickets []expoTicket
		if err := json.Unmarshal(decoded.Data, &tickets); err != nil || len(tickets) == 0 {
			return errors.New("push provider returned no ticket")
		}
		ticket = tickets[0]
	}
	if ticket.Status != "ok" {
		return fmt.Errorf("push rejected: %s", ticket.Message)
	}
	return nil
}

// LogPushSender only logs messages. It backs PUSH_PROVIDER=log.
type LogPushSender struct {
	log zerolog.Logger
}

func NewLogPushSender(log zerolog.Logger) *LogPushSender {
	return &LogPushSender{log: log}
}

func (s *LogPushSender) Send(_ context.Context, token, title, body string, data map[string]interface{}) error {
	s.log.Info().
		Str("token", token).
		Str("title", title).
		Str("body", body).
		Interface("data", data).
		Msg("push notification")
	return nil
}
