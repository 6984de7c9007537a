package protocol

import (
	"io"
	"strconv"
)

var (
	Terminal = []byte("\r\n")
)

// Encode serializes cmd into the request format the server expects: an
// array of bulk strings holding the keyword and each argument. It cannot fail.
func Encode(cmd Command) []byte {
	return AppendCommand(nil, cmd)
}

// AppendCommand appends the encoding of cmd to dst and returns the extended
// slice.
func AppendCommand(dst []byte, cmd Command) []byte {
	args := cmd.Args()

	dst = appendHeader(dst, KindArray, len(args))
	for _, arg := range args {
		dst = appendHeader(dst, KindBulk, len(arg))
		dst = append(dst, arg...)
		dst = append(dst, Terminal...)
	}

	return dst
}

// WriteCommand writes the encoding of cmd to w in a single Write call.
func WriteCommand(w io.Writer, cmd Command) error {
	_, err := w.Write(Encode(cmd))
	return err
}

// AppendResponse appends the wire form of r to dst. Nothing has no wire form
// and appends nothing.
func AppendResponse(dst []byte, r Response) []byte {
	switch r.Kind {
	case KindStatus, KindError:
		dst = append(dst, byte(r.Kind))
		dst = append(dst, r.Text...)
		return append(dst, Terminal...)

	case KindInteger:
		dst = append(dst, byte(KindInteger))
		dst = strconv.AppendInt(dst, r.Int, 10)
		return append(dst, Terminal...)

	case KindBulk:
		if r.Nil {
			return appendHeader(dst, KindBulk, -1)
		}

		dst = appendHeader(dst, KindBulk, len(r.Bytes))
		dst = append(dst, r.Bytes...)
		return append(dst, Terminal...)

	case KindArray:
		if r.Nil {
			return appendHeader(dst, KindArray, -1)
		}

		dst = appendHeader(dst, KindArray, len(r.Elements))
		for _, el := range r.Elements {
			dst = AppendResponse(dst, el)
		}

		return dst
	}

	return dst
}

// WriteResponse writes the wire form of r to w.
func WriteResponse(w io.Writer, r Response) error {
	_, err := w.Write(AppendResponse(nil, r))
	return err
}

func appendHeader(dst []byte, kind Kind, n int) []byte {
	dst = append(dst, byte(kind))
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, Terminal...)
}
