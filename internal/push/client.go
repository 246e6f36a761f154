// Package push реализует клиента провайдера push-уведомлений мобильного
// приложения. Доставка адресуется внешним user_uid: провайдер сам хранит
// привязку устройств.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Client клиент HTTP API провайдера push-уведомлений.
type Client struct {
	apiURL     string
	appID      string
	apiKey     string
	httpClient *http.Client
}

// NewClient создает новый клиент push-провайдера.
func NewClient(apiURL, appID, apiKey string) *Client {
	return &Client{
		apiURL:     apiURL,
		appID:      appID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type notificationRequest struct {
	AppID           string            `json:"app_id"`
	ExternalUserIDs []string          `json:"include_external_user_ids"`
	Headings        map[string]string `json:"headings"`
	Contents        map[string]string `json:"contents"`
	Data            map[string]string `json:"data,omitempty"`
}

// Send отправляет push-уведомление пользователю по его внешнему ID.
func (c *Client) Send(ctx context.Context, userUID, title, body string, data map[string]string) error {
	payload := notificationRequest{
		AppID:           c.appID,
		ExternalUserIDs: []string{userUID},
		Headings:        map[string]string{"en": title},
		Contents:        map[string]string{"en": body},
		Data:            data,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/notifications", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.New("unexpected status: " + resp.Status)
	}
	return nil
}
