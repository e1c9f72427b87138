package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// requestTimeout bounds a single call to the storage-api service.
const requestTimeout = 15 * time.Second

type storedValue struct {
	Value string `json:"value"`
}

type valueEvent struct {
	BlockNumber string `json:"blockNumber"`
	Value       string `json:"value"`
	TxHash      string `json:"txHash"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// fetchValue retrieves the latest stored value from the service.
func fetchValue(ctx context.Context, base string) (storedValue, error) {
	var v storedValue
	if err := getJSON(ctx, base+"/blockchain/value", &v); err != nil {
		return storedValue{}, fmt.Errorf("fetch blockchain value: %w", err)
	}
	return v, nil
}

// fetchEvents retrieves the value history for the block range. Empty bounds
// let the service pick its default window.
func fetchEvents(ctx context.Context, base string, from string, to string) ([]valueEvent, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}

	target := base + "/blockchain/events"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var evts []valueEvent
	if err := getJSON(ctx, target, &evts); err != nil {
		return nil, fmt.Errorf("fetch blockchain events: %w", err)
	}
	return evts, nil
}

// getJSON performs the GET request and decodes the JSON response into v.
// Error responses are decoded into the message returned by the service.
func getJSON(ctx context.Context, target string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("status %d: %s %v", resp.StatusCode, er.Error, er.Fields)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, er.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
