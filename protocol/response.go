package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type of a Response. Except for KindNothing it is the tag byte
// the value is introduced with on the wire.
type Kind byte

const (
	KindNothing Kind = 0
	KindStatus  Kind = '+'
	KindError   Kind = '-'
	KindInteger Kind = ':'
	KindBulk    Kind = '$'
	KindArray   Kind = '*'
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	default:
		return "nothing"
	}
}

// Response is a decoded server reply.
//
// Only the fields that belong to Kind are meaningful. Nil marks an absent
// Bulk or Array, which is not the same thing as an empty one. The zero value
// is Nothing.
type Response struct {
	Kind     Kind
	Text     string
	Int      int64
	Bytes    []byte
	Elements []Response
	Nil      bool
}

func Nothing() Response {
	return Response{}
}

func Status(s string) Response {
	return Response{Kind: KindStatus, Text: s}
}

// ErrorReply is an error sent by the server. It is data, not a failure of
// the exchange.
func ErrorReply(s string) Response {
	return Response{Kind: KindError, Text: s}
}

func Integer(n int64) Response {
	return Response{Kind: KindInteger, Int: n}
}

// Bulk builds a present bulk value; a nil b is an empty payload.
func Bulk(b []byte) Response {
	if b == nil {
		b = []byte{}
	}

	return Response{Kind: KindBulk, Bytes: b}
}

func BulkString(s string) Response {
	return Bulk([]byte(s))
}

func NilBulk() Response {
	return Response{Kind: KindBulk, Nil: true}
}

// Array builds a present array; no elements is an empty array.
func Array(elements ...Response) Response {
	if elements == nil {
		elements = []Response{}
	}

	return Response{Kind: KindArray, Elements: elements}
}

func NilArray() Response {
	return Response{Kind: KindArray, Nil: true}
}

// IsNil reports whether r is absent: Nothing, a nil Bulk or a nil Array.
func (r Response) IsNil() bool {
	return r.Kind == KindNothing || r.Nil
}

// Equal compares two responses structurally.
func (r Response) Equal(o Response) bool {
	if r.Kind != o.Kind {
		return false
	}

	switch r.Kind {
	case KindStatus, KindError:
		return r.Text == o.Text
	case KindInteger:
		return r.Int == o.Int
	case KindBulk:
		return r.Nil == o.Nil && bytes.Equal(r.Bytes, o.Bytes)
	case KindArray:
		if r.Nil != o.Nil || len(r.Elements) != len(o.Elements) {
			return false
		}

		for i := range r.Elements {
			if !r.Elements[i].Equal(o.Elements[i]) {
				return false
			}
		}

		return true
	default:
		return true
	}
}

// ErrorOrNil returns a *ReplyError if the response is an error reply.
// Otherwise it returns nil.
func (r Response) ErrorOrNil() error {
	if r.Kind == KindError {
		return &ReplyError{Message: r.Text}
	}

	return nil
}

// String renders the response the way redis-cli prints replies.
func (r Response) String() string {
	var sb strings.Builder
	r.format(&sb, "")
	return sb.String()
}

func (r Response) format(sb *strings.Builder, indent string) {
	switch r.Kind {
	case KindStatus:
		sb.WriteString(r.Text)
	case KindError:
		sb.WriteString("(error) ")
		sb.WriteString(r.Text)
	case KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(r.Int, 10))
	case KindBulk:
		if r.Nil {
			sb.WriteString("(nil)")
			return
		}

		sb.WriteString(strconv.Quote(string(r.Bytes)))
	case KindArray:
		if r.Nil {
			sb.WriteString("(nil array)")
			return
		}

		if len(r.Elements) == 0 {
			sb.WriteString("(empty array)")
			return
		}

		for i, el := range r.Elements {
			if i > 0 {
				sb.WriteString("\n")
				sb.WriteString(indent)
			}

			prefix := fmt.Sprintf("%d) ", i+1)
			sb.WriteString(prefix)
			el.format(sb, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		sb.WriteString("(nothing)")
	}
}

// ReplyError is an error reply converted into a Go error.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}

// Prefix returns the leading word of the error, e.g. "ERR" or "WRONGTYPE".
func (e *ReplyError) Prefix() string {
	if i := strings.IndexByte(e.Message, ' '); i >= 0 {
		return e.Message[:i]
	}

	return e.Message
}
