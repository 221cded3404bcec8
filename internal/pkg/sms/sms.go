package sms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ConfigFunc is called on each send to get the latest gateway settings.
type ConfigFunc func() (gatewayURL, apiKey, senderID string)

// Service sends SMS messages through a JSON HTTP gateway.
type Service struct {
	configFn   ConfigFunc
	httpClient *http.Client

	mu         sync.Mutex
	lastSendAt map[string]time.Time
	throttleD  time.Duration
}

// New creates a new SMS service. configFn is called on each send to retrieve settings.
func New(configFn ConfigFunc) *Service {
	return &Service{
		configFn:   configFn,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		lastSendAt: make(map[string]time.Time),
		throttleD:  time.Minute,
	}
}

type sendPayload struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	Sender string `json:"sender,omitempty"`
}

// Send delivers one SMS immediately (no throttle).
func (s *Service) Send(to, body string) error {
	gatewayURL, apiKey, senderID := s.configFn()
	if gatewayURL == "" {
		return fmt.Errorf("sms gateway not configured")
	}

	payload := sendPayload{
		To:     to,
		Body:   body,
		Sender: senderID,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", gatewayURL+"/messages", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("sms gateway error %d: %s", resp.StatusCode, errResp.Message)
	}
	return nil
}

// ThrottleSend sends at most one message per minute to the same number.
// Repeat confirmation requests inside the window are dropped silently.
func (s *Service) ThrottleSend(to, body string) {
	gatewayURL, _, _ := s.configFn()
	if gatewayURL == "" {
		return
	}

	s.mu.Lock()
	last, ok := s.lastSendAt[to]
	if ok && time.Since(last) < s.throttleD {
		s.mu.Unlock()
		return
	}
	s.lastSendAt[to] = time.Now()
	s.mu.Unlock()

	_ = s.Send(to, body)
}
