package msgsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"msgengine/internal/common"
	"msgengine/internal/dbstore"

	"go.uber.org/zap"
)

const fetchPath = "/v1/in-app-messages"

// messageDTO is the wire shape of one message. Content, data and badge
// config stay opaque JSON all the way into the store.
type messageDTO struct {
	ID            uint64          `json:"id"`
	Content       json.RawMessage `json:"content"`
	Data          json.RawMessage `json:"data,omitempty"`
	BadgeConfig   json.RawMessage `json:"badge_config,omitempty"`
	InboxFrom     *time.Time      `json:"inbox_from,omitempty"`
	InboxTo       *time.Time      `json:"inbox_to,omitempty"`
	PresentedWhen string          `json:"presented_when,omitempty"`
	TTLHours      *int            `json:"ttl_hours,omitempty"`
	SentAt        time.Time       `json:"sent_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type fetchResponse struct {
	Messages []json.RawMessage `json:"messages"`
}

// Client performs one authenticated fetch against the message backend. It
// is stateless: the cursor it is handed is the only input, retry policy
// belongs to the scheduler above.
type Client struct {
	http    common.AuthenticatedClient
	baseURL string
	log     *zap.SugaredLogger
}

func NewClient(httpClient common.AuthenticatedClient, baseURL string, log *zap.SugaredLogger) *Client {
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		log:     log,
	}
}

// Fetch returns every message updated since cursor; a nil cursor means
// fetch all. A malformed item is dropped and logged, the rest of the batch
// keeps going.
func (c *Client) Fetch(ctx context.Context, cursor *time.Time) ([]*dbstore.Message, error) {
	endpoint := c.baseURL + fetchPath
	if cursor != nil {
		query := url.Values{}
		query.Set("since", cursor.Format(time.RFC3339Nano))
		endpoint += "?" + query.Encode()
	}

	resp, err := c.http.Execute(ctx, http.MethodGet, endpoint,
		map[string]string{"Accept": "application/json"}, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.Status == http.StatusNotFound:
		// user-scoped 404: nothing to sync, not a failure
		return nil, common.ErrNotFound
	case resp.Status >= 500:
		return nil, &common.ServerError{Status: resp.Status, Body: truncate(resp.Body, 200)}
	case resp.Status != http.StatusOK:
		return nil, &common.ValidationError{
			Reason: fmt.Sprintf("unexpected status %d from message backend", resp.Status),
		}
	}

	var envelope fetchResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, &common.ValidationError{Reason: fmt.Sprintf("malformed response body: %v", err)}
	}

	messages := make([]*dbstore.Message, 0, len(envelope.Messages))
	for i, raw := range envelope.Messages {
		var dto messageDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			c.log.Warnw("dropping malformed message in batch",
				"index", i, "error", &common.ValidationError{Reason: err.Error()})
			continue
		}
		if err := dto.validate(); err != nil {
			c.log.Warnw("dropping invalid message in batch",
				"index", i, "id", dto.ID, "error", err)
			continue
		}
		messages = append(messages, dto.toModel())
	}
	return messages, nil
}

func (dto *messageDTO) validate() error {
	if dto.ID == 0 {
		return &common.ValidationError{Reason: "message id missing"}
	}
	if len(dto.Content) == 0 {
		return &common.ValidationError{Reason: "message content missing"}
	}
	if dto.UpdatedAt.IsZero() {
		return &common.ValidationError{Reason: "message updated_at missing"}
	}
	if dto.SentAt.IsZero() {
		return &common.ValidationError{Reason: "message sent_at missing"}
	}
	return nil
}

func (dto *messageDTO) toModel() *dbstore.Message {
	presentedWhen := dto.PresentedWhen
	if presentedWhen == "" {
		presentedWhen = string(common.PresentImmediately)
	}

	m := &dbstore.Message{
		ID:            dto.ID,
		Content:       string(dto.Content),
		InboxFrom:     dto.InboxFrom,
		InboxTo:       dto.InboxTo,
		PresentedWhen: presentedWhen,
		TTLHours:      dto.TTLHours,
		SentAt:        dto.SentAt,
		UpdatedAt:     dto.UpdatedAt,
	}
	if len(dto.Data) > 0 {
		data := string(dto.Data)
		m.Data = &data
	}
	if len(dto.BadgeConfig) > 0 {
		badge := string(dto.BadgeConfig)
		m.BadgeConfig = &badge
	}
	return m
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
