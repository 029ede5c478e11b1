package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownAction is returned for actions other than the recognized ones.
	ErrUnknownAction = errors.New("unknown push action")
	// ErrMalformedPayload is matched by every *DecodeError.
	ErrMalformedPayload = errors.New("malformed push payload")
)

// DecodeError reports a payload that is missing a required field or has a
// field of the wrong type.
type DecodeError struct {
	Kind  Kind
	Field string
	Cause error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s %s: %v", ErrMalformedPayload, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s %s: field %q: %v", ErrMalformedPayload, e.Kind, e.Field, e.Cause)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformedPayload, e.Cause}
}

var errMissing = errors.New("missing or empty")

// Pointers distinguish an absent key from a zero value.
type messageWire struct {
	EntityID       *string `json:"entity_id"        validate:"required"`
	ThreadEntityID *string `json:"thread_entity_id" validate:"required"`
	MessageDate    *int64  `json:"message_date"     validate:"required"`
	SenderEntityID *string `json:"sender_entity_id" validate:"required"`
	MessageType    *int    `json:"message_type"     validate:"required"`
	MessagePayload *string `json:"message_payload"  validate:"required"`
	Content        *string `json:"content"`
}

type followerWire struct {
	Content *string `json:"content" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode turns a raw event into a typed Event. It has no side effects.
// Unrecognized actions yield ErrUnknownAction; any missing or mistyped
// field yields a *DecodeError.
func Decode(raw RawEvent) (Event, error) {
	kind, ok := KindForAction(raw.Action)
	if !ok {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownAction, raw.Action)
	}

	switch kind {
	case KindMessage:
		p, err := decodeMessage(raw.Data)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Channel: raw.Channel, Message: p}, nil

	case KindFollowerAdded:
		p, err := decodeFollower(raw.Data)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Channel: raw.Channel, Follower: p}, nil
	}

	return Event{}, fmt.Errorf("%w: %q", ErrUnknownAction, raw.Action)
}

func decodeMessage(data string) (*MessagePayload, error) {
	var w messageWire
	if err := unmarshalWire(KindMessage, data, &w); err != nil {
		return nil, err
	}

	ids := []struct {
		field string
		value string
	}{
		{"entity_id", *w.EntityID},
		{"thread_entity_id", *w.ThreadEntityID},
		{"sender_entity_id", *w.SenderEntityID},
	}
	for _, id := range ids {
		if id.value == "" {
			return nil, &DecodeError{Kind: KindMessage, Field: id.field, Cause: errMissing}
		}
	}

	p := &MessagePayload{
		EntityID:       *w.EntityID,
		ThreadEntityID: *w.ThreadEntityID,
		SenderEntityID: *w.SenderEntityID,
		Date:           *w.MessageDate,
		Type:           MessageType(*w.MessageType),
		Body:           *w.MessagePayload,
	}
	if w.Content != nil {
		p.Content = *w.Content
	}
	return p, nil
}

func decodeFollower(data string) (*FollowerPayload, error) {
	var w followerWire
	if err := unmarshalWire(KindFollowerAdded, data, &w); err != nil {
		return nil, err
	}
	return &FollowerPayload{Content: *w.Content}, nil
}

// unmarshalWire parses data into a wire struct and checks required fields.
func unmarshalWire(kind Kind, data string, w any) error {
	if strings.TrimSpace(data) == "" {
		return &DecodeError{Kind: kind, Cause: errors.New("empty payload")}
	}

	if err := json.Unmarshal([]byte(data), w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &DecodeError{Kind: kind, Field: typeErr.Field, Cause: err}
		}
		return &DecodeError{Kind: kind, Cause: err}
	}

	if err := validate.Struct(w); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &DecodeError{Kind: kind, Field: verrs[0].Field(), Cause: errMissing}
		}
		return &DecodeError{Kind: kind, Cause: err}
	}

	return nil
}
