package protocol

import (
	"github.com/tidwall/sjson"
)

// MarshalJSON renders the response as `{"type": "<kind>", "value": ...}`.
// Absent values are null and arrays hold nested responses.
func (r Response) MarshalJSON() ([]byte, error) {
	doc, err := sjson.SetBytes([]byte(`{}`), "type", r.Kind.String())
	if err != nil {
		return nil, err
	}

	switch {
	case r.IsNil():
		return sjson.SetRawBytes(doc, "value", []byte("null"))

	case r.Kind == KindStatus, r.Kind == KindError:
		return sjson.SetBytes(doc, "value", r.Text)

	case r.Kind == KindInteger:
		return sjson.SetBytes(doc, "value", r.Int)

	case r.Kind == KindBulk:
		return sjson.SetBytes(doc, "value", string(r.Bytes))
	}

	doc, err = sjson.SetRawBytes(doc, "value", []byte("[]"))
	if err != nil {
		return nil, err
	}

	for _, el := range r.Elements {
		raw, err := el.MarshalJSON()
		if err != nil {
			return nil, err
		}

		if doc, err = sjson.SetRawBytes(doc, "value.-1", raw); err != nil {
			return nil, err
		}
	}

	return doc, nil
}
