package bridge

import (
	"encoding/json"
	"fmt"
)

// Outgoing command types understood by the extension.
const (
	CmdNavigate   = "navigate"
	CmdClick      = "click"
	CmdType       = "type"
	CmdWait       = "wait"
	CmdScreenshot = "screenshot"
	CmdEvaluate   = "evaluate"
	CmdGetContent = "getContent"
	CmdAudit      = "audit"
	CmdPing       = "ping"
)

// Reply types the extension sends in response to commands.
const (
	RespNavigateAck    = "navigate-ack"
	RespClickAck       = "click-ack"
	RespTypeAck        = "type-ack"
	RespWaitAck        = "wait-ack"
	RespScreenshotData = "screenshot-data"
	RespEvaluateResult = "evaluate-result"
	RespContentData    = "content-data"
	RespAuditResult    = "audit-result"
	RespPong           = "pong"
)

// Push message types the extension emits on its own. They never carry a
// requestId and are never correlated against pending requests.
const (
	PushConsoleLog   = "consoleLog"
	PushConsoleError = "consoleError"
	PushNetworkError = "networkError"
)

// responseTypes maps each command to the reply type the extension is
// expected to answer with.
var responseTypes = map[string]string{
	CmdNavigate:   RespNavigateAck,
	CmdClick:      RespClickAck,
	CmdType:       RespTypeAck,
	CmdWait:       RespWaitAck,
	CmdScreenshot: RespScreenshotData,
	CmdEvaluate:   RespEvaluateResult,
	CmdGetContent: RespContentData,
	CmdAudit:      RespAuditResult,
	CmdPing:       RespPong,
}

// ResponseTypeFor returns the reply type paired with a command, or an
// empty string for unknown commands.
func ResponseTypeFor(cmd string) string {
	return responseTypes[cmd]
}

// Command is an outgoing message to the extension. Params are flattened
// into the top-level JSON object next to type and requestId.
type Command struct {
	Type      string
	RequestID string
	Params    map[string]interface{}
}

func (c Command) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(c.Params)+2)
	for k, v := range c.Params {
		if k == "type" || k == "requestId" {
			continue
		}
		m[k] = v
	}
	m["type"] = c.Type
	if c.RequestID != "" {
		m["requestId"] = c.RequestID
	}
	return json.Marshal(m)
}

// MessageKind discriminates incoming messages after decoding.
type MessageKind int

const (
	KindResponse MessageKind = iota
	KindConsoleLog
	KindConsoleError
	KindNetworkError
)

// Incoming is a decoded message from the extension. Raw holds the full
// original bytes so handlers can pull type-specific fields lazily.
type Incoming struct {
	Kind      MessageKind
	Type      string
	RequestID string
	Raw       json.RawMessage
}

// DecodeIncoming parses the type/requestId envelope of a message and
// classifies it. Anything without a type field is malformed.
func DecodeIncoming(data []byte) (Incoming, error) {
	var envelope struct {
		Type      string `json:"type"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Incoming{}, NewMalformedResponseError("", fmt.Errorf("invalid json: %w", err))
	}
	if envelope.Type == "" {
		return Incoming{}, NewMalformedResponseError("", fmt.Errorf("message missing type field"))
	}

	msg := Incoming{
		Type:      envelope.Type,
		RequestID: envelope.RequestID,
		Raw:       json.RawMessage(data),
	}
	switch envelope.Type {
	case PushConsoleLog:
		msg.Kind = KindConsoleLog
	case PushConsoleError:
		msg.Kind = KindConsoleError
	case PushNetworkError:
		msg.Kind = KindNetworkError
	default:
		msg.Kind = KindResponse
	}
	return msg, nil
}

// Fields decodes the full message body into a generic map. Used by
// handlers that need payload fields beyond the envelope.
func (m Incoming) Fields() (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(m.Raw, &fields); err != nil {
		return nil, NewMalformedResponseError(m.Type, err)
	}
	return fields, nil
}
