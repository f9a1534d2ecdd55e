package present

import (
	"encoding/json"
	"fmt"

	"msgengine/internal/common"
	"msgengine/internal/dbstore"
)

// Host-bound message types emitted by the render surface.
const (
	eventReady  = "READY"
	eventOpened = "MESSAGE_OPENED"
	eventClosed = "MESSAGE_CLOSED"
)

// surfaceEvent is the envelope every host-bound bridge message arrives in.
// Unknown extra fields are ignored so a newer surface can talk to an older
// engine.
type surfaceEvent struct {
	Type      string `json:"type"`
	MessageID uint64 `json:"message_id,omitempty"`
}

func decodeSurfaceEvent(raw []byte) (*surfaceEvent, error) {
	var event surfaceEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("bridge message missing type")
	}
	return &event, nil
}

// showPayload is what the surface-side bridge receives for one message.
type showPayload struct {
	ID      uint64          `json:"id"`
	Content json.RawMessage `json:"content"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// showScript renders the host->surface present command. The surface-side
// bridge exposes a single global the host drives through evaluateScript.
func showScript(m *dbstore.Message) (string, error) {
	payload := showPayload{
		ID:      m.ID,
		Content: json.RawMessage(m.Content),
	}
	if m.Data != nil {
		payload.Data = json.RawMessage(*m.Data)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", &common.ProtocolError{Raw: m.Content, State: "encode show"}
	}
	return fmt.Sprintf("window.__msgBridge.show(%s);", encoded), nil
}

// closeScript asks the surface to wind down the visible message. The
// surface answers with MESSAGE_CLOSED once done.
func closeScript() string {
	return "window.__msgBridge.close();"
}
