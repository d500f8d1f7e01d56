package livesync

import (
	"encoding/json"
	"errors"
)

// ErrNoID means the payload carried no recognizable identifier.
var ErrNoID = errors.New("push payload has no identifier")

// idEnvelope is the tagged union of every payload shape the push channel has
// ever delivered: a bare ID string, the object itself, or the object (or its
// ID) nested under an "order"/"table" key.
type idEnvelope struct {
	ID      string      `json:"id"`
	MongoID string      `json:"_id"`
	OrderID string      `json:"orderId"`
	TableID string      `json:"tableId"`
	Order   *idEnvelope `json:"order"`
	Table   *idEnvelope `json:"table"`
}

func (e *idEnvelope) canonical() string {
	switch {
	case e == nil:
		return ""
	case e.ID != "":
		return e.ID
	case e.MongoID != "":
		return e.MongoID
	case e.OrderID != "":
		return e.OrderID
	case e.TableID != "":
		return e.TableID
	case e.Order != nil:
		return e.Order.canonical()
	case e.Table != nil:
		return e.Table.canonical()
	}
	return ""
}

// NormalizeID resolves any known payload shape to the canonical ID string.
// Every identity comparison in the cache goes through this one function.
func NormalizeID(payload json.RawMessage) (string, error) {
	var bare string
	if err := json.Unmarshal(payload, &bare); err == nil {
		if bare == "" {
			return "", ErrNoID
		}
		return bare, nil
	}

	var env idEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", err
	}
	if id := env.canonical(); id != "" {
		return id, nil
	}
	return "", ErrNoID
}

// ExtractObject returns the JSON object carrying the record's fields: the
// payload itself when it is an object, or the object nested under an
// "order"/"table" key. Bare-string payloads carry no fields and return nil.
func ExtractObject(payload json.RawMessage) json.RawMessage {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil
	}
	if nested, ok := probe["order"]; ok && isObject(nested) {
		return nested
	}
	if nested, ok := probe["table"]; ok && isObject(nested) {
		return nested
	}
	return payload
}

func isObject(raw json.RawMessage) bool {
	var probe map[string]json.RawMessage
	return json.Unmarshal(raw, &probe) == nil
}
