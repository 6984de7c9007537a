package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrIncomplete means the buffer holds the start of a reply but not all
	// of it. Nothing was consumed, feed more bytes and try again.
	ErrIncomplete = errors.New("reply is incomplete")

	ErrMalformed = errors.New("reply is malformed")
)

// MalformedError describes where and how a reply broke the grammar. It
// unwraps to ErrMalformed.
type MalformedError struct {
	Offset int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s at byte %d: %s", ErrMalformed, e.Offset, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformed
}

// Parse decodes the reply at the start of buf. It returns the reply and the
// number of bytes it occupied, ErrIncomplete if buf ends before the reply
// does, or a *MalformedError.
//
// Invalid bytes are reported as soon as they are seen, so a buffer holding
// only a prefix of a valid reply always gives ErrIncomplete.
func Parse(buf []byte) (Response, int, error) {
	resp, n, err := parseValue(buf, 0)
	if err != nil {
		return Response{}, 0, err
	}

	return resp, n, nil
}

func parseValue(buf []byte, pos int) (Response, int, error) {
	if pos >= len(buf) {
		return Response{}, 0, ErrIncomplete
	}

	switch kind := Kind(buf[pos]); kind {
	case KindStatus, KindError:
		end := bytes.Index(buf[pos+1:], Terminal)
		if end < 0 {
			return Response{}, 0, ErrIncomplete
		}

		end += pos + 1
		return Response{Kind: kind, Text: string(buf[pos+1 : end])}, end + len(Terminal), nil

	case KindInteger:
		n, next, err := parseInteger(buf, pos+1)
		if err != nil {
			return Response{}, 0, err
		}

		return Integer(n), next, nil

	case KindBulk:
		n, next, err := parseLength(buf, pos+1)
		if err != nil {
			return Response{}, 0, err
		}

		if n < 0 {
			return NilBulk(), next, nil
		}

		if n+2 > len(buf)-next {
			return Response{}, 0, ErrIncomplete
		}

		end := next + n
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return Response{}, 0, malformed(end, "bulk payload is not followed by a terminator")
		}

		// The buffer gets reused once the reply is extracted
		payload := make([]byte, n)
		copy(payload, buf[next:end])

		return Bulk(payload), end + len(Terminal), nil

	case KindArray:
		n, next, err := parseLength(buf, pos+1)
		if err != nil {
			return Response{}, 0, err
		}

		if n < 0 {
			return NilArray(), next, nil
		}

		// Every element takes at least 3 bytes, don't trust n for the allocation
		capacity := n
		if remaining := (len(buf) - next) / 3; capacity > remaining {
			capacity = remaining
		}

		elements := make([]Response, 0, capacity)
		for i := 0; i < n; i++ {
			el, after, err := parseValue(buf, next)
			if err != nil {
				return Response{}, 0, err
			}

			elements = append(elements, el)
			next = after
		}

		return Array(elements...), next, nil

	default:
		return Response{}, 0, malformed(pos, fmt.Sprintf("unknown type tag %q", buf[pos]))
	}
}

// parseInteger reads an optionally signed decimal followed by a terminator.
func parseInteger(buf []byte, pos int) (int64, int, error) {
	end, err := scanNumber(buf, pos, "+-")
	if err != nil {
		return 0, 0, err
	}

	n, err := strconv.ParseInt(string(buf[pos:end]), 10, 64)
	if err != nil {
		return 0, 0, malformed(pos, fmt.Sprintf("invalid integer %q", buf[pos:end]))
	}

	return n, end + len(Terminal), nil
}

// parseLength reads the length of a bulk or the count of an array. The
// only negative value allowed is -1 which is returned as is.
func parseLength(buf []byte, pos int) (int, int, error) {
	if pos < len(buf) && buf[pos] == '-' {
		if pos+1 < len(buf) && buf[pos+1] != '1' {
			return 0, 0, malformed(pos, "negative length other than -1")
		}

		if pos+2 < len(buf) && buf[pos+2] != '\r' {
			return 0, 0, malformed(pos, "negative length other than -1")
		}
	}

	end, err := scanNumber(buf, pos, "-")
	if err != nil {
		return 0, 0, err
	}

	n, err := strconv.ParseInt(string(buf[pos:end]), 10, 64)
	if err != nil || n > math.MaxInt32 {
		return 0, 0, malformed(pos, fmt.Sprintf("invalid length %q", buf[pos:end]))
	}

	return int(n), end + len(Terminal), nil
}

// scanNumber checks the bytes of a numeric field starting at pos, signs
// holds the sign characters allowed in front. It returns the offset of the
// terminator.
func scanNumber(buf []byte, pos int, signs string) (int, error) {
	digits := 0

	for i := pos; i < len(buf); i++ {
		c := buf[i]

		switch {
		case c >= '0' && c <= '9':
			digits++

		case i == pos && bytes.IndexByte([]byte(signs), c) >= 0:

		case c == '\r':
			if digits == 0 {
				return 0, malformed(pos, "number has no digits")
			}

			if i+1 >= len(buf) {
				return 0, ErrIncomplete
			}

			if buf[i+1] != '\n' {
				return 0, malformed(i+1, "expected \\n after \\r")
			}

			return i, nil

		default:
			return 0, malformed(i, fmt.Sprintf("unexpected byte %q in number", c))
		}
	}

	return 0, ErrIncomplete
}

func malformed(offset int, reason string) error {
	return &MalformedError{Offset: offset, Reason: reason}
}

// ParseState accumulates the bytes of a reply as they arrive and extracts
// replies once they are complete. The zero value is ready to use.
//
// It is owned by a single exchange at a time.
type ParseState struct {
	buf    []byte
	cursor int
}

// Feed appends p to the buffer.
func (s *ParseState) Feed(p []byte) {
	copy(s.Spare(len(p)), p)
	s.Commit(len(p))
}

// Spare returns a writable slice of at least n bytes past the end of the
// buffered data. Bytes written into it only count once passed to Commit.
func (s *ParseState) Spare(n int) []byte {
	if s.cursor > 0 && s.cursor == len(s.buf) {
		s.buf = s.buf[:0]
		s.cursor = 0
	}

	if cap(s.buf)-len(s.buf) < n && s.cursor > 0 {
		// Slide the unparsed bytes down before growing
		kept := copy(s.buf, s.buf[s.cursor:])
		s.buf = s.buf[:kept]
		s.cursor = 0
	}

	if cap(s.buf)-len(s.buf) < n {
		grown := make([]byte, len(s.buf), 2*cap(s.buf)+n)
		copy(grown, s.buf)
		s.buf = grown
	}

	return s.buf[len(s.buf):cap(s.buf)]
}

// Commit marks n bytes of the last Spare slice as buffered.
func (s *ParseState) Commit(n int) {
	s.buf = s.buf[:len(s.buf)+n]
}

// Next extracts the next complete reply. It returns ErrIncomplete, leaving
// the buffer untouched, when more bytes are needed.
func (s *ParseState) Next() (Response, error) {
	resp, n, err := Parse(s.buf[s.cursor:])
	if err != nil {
		return Response{}, err
	}

	s.cursor += n
	if s.cursor == len(s.buf) {
		s.buf = s.buf[:0]
		s.cursor = 0
	}

	return resp, nil
}

// Len returns the number of buffered bytes that have not been parsed yet.
func (s *ParseState) Len() int {
	return len(s.buf) - s.cursor
}

// Reset discards everything buffered.
func (s *ParseState) Reset() {
	s.buf = s.buf[:0]
	s.cursor = 0
}
