// Package protocol implements the room chat wire format.
//
// Every inbound frame is a JSON object tagged with a "type" field. Decode
// turns it into one of the closed set of Frame variants below; anything
// with an unrecognized tag becomes Unknown. The only outbound shape is
// models.ClientMessage.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"roomchat/internal/models"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
)

type Type string

const (
	TypeChatMessage             Type = "chat_message"
	TypeUserList                Type = "user_list"
	TypeUserJoin                Type = "user_join"
	TypeUserLeave               Type = "user_leave"
	TypePrivateMessage          Type = "private_message"
	TypePrivateMessageDelivered Type = "private_message_delivered"
)

// Frame is a decoded server to client frame.
type Frame interface {
	Type() Type
	frame()
}

type ChatMessage struct {
	User    string `json:"user"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

type UserList struct {
	Users []string `json:"users"`
}

type UserJoin struct {
	User string `json:"user"`
}

type UserLeave struct {
	User string `json:"user"`
}

type PrivateMessage struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

type PrivateMessageDelivered struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

// Unknown carries the tag of a frame this client does not understand.
type Unknown struct {
	Kind Type
}

func (ChatMessage) Type() Type             { return TypeChatMessage }
func (UserList) Type() Type                { return TypeUserList }
func (UserJoin) Type() Type                { return TypeUserJoin }
func (UserLeave) Type() Type               { return TypeUserLeave }
func (PrivateMessage) Type() Type          { return TypePrivateMessage }
func (PrivateMessageDelivered) Type() Type { return TypePrivateMessageDelivered }
func (u Unknown) Type() Type               { return u.Kind }

func (ChatMessage) frame()             {}
func (UserList) frame()                {}
func (UserJoin) frame()                {}
func (UserLeave) frame()               {}
func (PrivateMessage) frame()          {}
func (PrivateMessageDelivered) frame() {}
func (Unknown) frame()                 {}

// envelope is used to peek at the discriminator before decoding the body.
type envelope struct {
	Type *Type `json:"type"`
}

// Raw shapes use pointers so that a missing field can be told apart from
// an empty one.
type rawChatMessage struct {
	User    *string `json:"user"`
	Message *string `json:"message"`
	Time    *string `json:"time"`
}

type rawUserList struct {
	Users *[]string `json:"users"`
}

type rawUser struct {
	User *string `json:"user"`
}

type rawPrivateMessage struct {
	User    *string `json:"user"`
	Message *string `json:"message"`
}

type rawDelivered struct {
	Target  *string `json:"target"`
	Message *string `json:"message"`
}

// Decode parses and validates a single inbound frame.
// Errors wrap ErrMalformedFrame. An unrecognized type is not an error and
// is returned as Unknown.
func Decode(data []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}

	switch t := *env.Type; t {
	case TypeChatMessage:
		var raw rawChatMessage
		if err := unmarshalBody(t, data, &raw); err != nil {
			return nil, err
		}
		if err := checkPresent(t, field{"user", raw.User}, field{"message", raw.Message}); err != nil {
			return nil, err
		}
		return ChatMessage{User: *raw.User, Message: *raw.Message, Time: deref(raw.Time)}, nil

	case TypeUserList:
		var raw rawUserList
		if err := unmarshalBody(t, data, &raw); err != nil {
			return nil, err
		}
		if raw.Users == nil {
			return nil, fmt.Errorf("%w: %s: missing users", ErrMalformedFrame, t)
		}
		for _, u := range *raw.Users {
			if u == "" {
				return nil, fmt.Errorf("%w: %s: empty user", ErrMalformedFrame, t)
			}
		}
		return UserList{Users: *raw.Users}, nil

	case TypeUserJoin, TypeUserLeave:
		var raw rawUser
		if err := unmarshalBody(t, data, &raw); err != nil {
			return nil, err
		}
		if err := checkPresent(t, field{"user", raw.User}); err != nil {
			return nil, err
		}
		if *raw.User == "" {
			return nil, fmt.Errorf("%w: %s: empty user", ErrMalformedFrame, t)
		}
		if t == TypeUserJoin {
			return UserJoin{User: *raw.User}, nil
		}
		return UserLeave{User: *raw.User}, nil

	case TypePrivateMessage:
		var raw rawPrivateMessage
		if err := unmarshalBody(t, data, &raw); err != nil {
			return nil, err
		}
		if err := checkPresent(t, field{"user", raw.User}, field{"message", raw.Message}); err != nil {
			return nil, err
		}
		return PrivateMessage{User: *raw.User, Message: *raw.Message}, nil

	case TypePrivateMessageDelivered:
		var raw rawDelivered
		if err := unmarshalBody(t, data, &raw); err != nil {
			return nil, err
		}
		if err := checkPresent(t, field{"target", raw.Target}, field{"message", raw.Message}); err != nil {
			return nil, err
		}
		return PrivateMessageDelivered{Target: *raw.Target, Message: *raw.Message}, nil

	default:
		return Unknown{Kind: t}, nil
	}
}

// EncodeFrame serializes a server to client frame with its type tag.
func EncodeFrame(f Frame) ([]byte, error) {
	if _, ok := f.(Unknown); ok {
		return nil, fmt.Errorf("cannot encode frame of unknown type %q", f.Type())
	}

	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", f.Type(), err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to restructure %s: %w", f.Type(), err)
	}
	tag, err := json.Marshal(f.Type())
	if err != nil {
		return nil, err
	}
	fields["type"] = tag

	return json.Marshal(fields)
}

// EncodeOutbound serializes the client to server envelope.
func EncodeOutbound(text string) ([]byte, error) {
	return json.Marshal(models.ClientMessage{Message: text})
}

func unmarshalBody(t Type, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedFrame, t, err)
	}
	return nil
}

type field struct {
	name  string
	value *string
}

func checkPresent(t Type, fields ...field) error {
	for _, f := range fields {
		if f.value == nil {
			return fmt.Errorf("%w: %s: missing %s", ErrMalformedFrame, t, f.name)
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
