package notify

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ReplyKind tags the shape of the automation service's immediate answer.
type ReplyKind int

const (
	ReplyUnrecognized ReplyKind = iota
	ReplyText
	ReplyObject
	ReplyArray
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyText:
		return "text"
	case ReplyObject:
		return "object"
	case ReplyArray:
		return "array"
	default:
		return "unrecognized"
	}
}

// Reply is the decoded immediate response to an AI instruction. Exactly
// one payload field is set, matching Kind; Raw always holds the body.
type Reply struct {
	Kind   ReplyKind
	Text   string
	Object map[string]any
	Array  []map[string]any
	Raw    []byte
}

const defaultAck = "Instrução enviada para processamento"

// keys checked, in order, for a human-readable message
var messageKeys = []string{"message", "output", "text", "resposta", "response"}

type replyMatcher func(body []byte) (Reply, bool)

// tried in order; the first match wins
var replyMatchers = []replyMatcher{
	matchObjectArray,
	matchObject,
	matchJSONString,
	matchPlainText,
}

// DecodeReply classifies body. Shapes no matcher accepts (empty body,
// numbers, booleans, null, arrays of non-objects) are Unrecognized.
func DecodeReply(body []byte) Reply {
	trimmed := bytes.TrimSpace(body)
	for _, match := range replyMatchers {
		if r, ok := match(trimmed); ok {
			r.Raw = body
			return r
		}
	}
	return Reply{Kind: ReplyUnrecognized, Raw: body}
}

func matchObjectArray(body []byte) (Reply, bool) {
	if len(body) == 0 || body[0] != '[' {
		return Reply{}, false
	}
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
		return Reply{}, false
	}
	for _, item := range items {
		if item == nil {
			return Reply{}, false
		}
	}
	return Reply{Kind: ReplyArray, Array: items}, true
}

func matchObject(body []byte) (Reply, bool) {
	if len(body) == 0 || body[0] != '{' {
		return Reply{}, false
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return Reply{}, false
	}
	return Reply{Kind: ReplyObject, Object: obj}, true
}

func matchJSONString(body []byte) (Reply, bool) {
	if len(body) == 0 || body[0] != '"' {
		return Reply{}, false
	}
	var text string
	if err := json.Unmarshal(body, &text); err != nil {
		return Reply{}, false
	}
	return Reply{Kind: ReplyText, Text: text}, true
}

func matchPlainText(body []byte) (Reply, bool) {
	if len(body) == 0 || json.Valid(body) {
		return Reply{}, false
	}
	return Reply{Kind: ReplyText, Text: string(body)}, true
}

// Message extracts something to show the user, falling back to a generic
// acknowledgement.
func (r Reply) Message() string {
	switch r.Kind {
	case ReplyText:
		if s := strings.TrimSpace(r.Text); s != "" {
			return s
		}
	case ReplyObject:
		if s, ok := firstMessage(r.Object); ok {
			return s
		}
	case ReplyArray:
		for _, item := range r.Array {
			if s, ok := firstMessage(item); ok {
				return s
			}
		}
	}
	return defaultAck
}

func firstMessage(obj map[string]any) (string, bool) {
	for _, key := range messageKeys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

// MarshalJSON renders the variant as {"kind": ..., "value": ...}.
func (r Reply) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind  string `json:"kind"`
		Value any    `json:"value,omitempty"`
	}{Kind: r.Kind.String()}

	switch r.Kind {
	case ReplyText:
		out.Value = r.Text
	case ReplyObject:
		out.Value = r.Object
	case ReplyArray:
		out.Value = r.Array
	default:
		if len(bytes.TrimSpace(r.Raw)) > 0 {
			out.Value = string(r.Raw)
		}
	}
	return json.Marshal(out)
}
