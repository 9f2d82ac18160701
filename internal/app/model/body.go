package model

import "encoding/json"

// BodyKind tags how a captured payload was interpreted.
type BodyKind string

const (
	BodyEmpty  BodyKind = "empty"
	BodyJSON   BodyKind = "json"
	BodyForm   BodyKind = "form"
	BodyText   BodyKind = "text"
	BodyBinary BodyKind = "binary"
)

// FormFile summarises an uploaded multipart file; the content itself is not kept.
type FormFile struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// Body holds a captured payload. Exactly one of JSON, Form, Text or Raw is set,
// matching Kind.
type Body struct {
	Kind BodyKind
	JSON json.RawMessage
	// Form values are string, []string, FormFile or []FormFile.
	Form map[string]any
	Text string
	Raw  []byte

	length int
}

func EmptyBody() Body {
	return Body{Kind: BodyEmpty}
}

// JSONBody keeps raw verbatim. Callers must pass valid JSON.
func JSONBody(raw []byte) Body {
	return Body{Kind: BodyJSON, JSON: append(json.RawMessage(nil), raw...), length: len(raw)}
}

func FormBody(values map[string]any, length int) Body {
	return Body{Kind: BodyForm, Form: values, length: length}
}

func TextBody(text string) Body {
	return Body{Kind: BodyText, Text: text, length: len(text)}
}

func BinaryBody(raw []byte) Body {
	return Body{Kind: BodyBinary, Raw: append([]byte(nil), raw...), length: len(raw)}
}

// Size is the number of payload bytes received.
func (b Body) Size() int {
	return b.length
}

// MarshalJSON emits the payload in its natural JSON shape: JSON verbatim, forms as
// objects, text as a string, binary as base64 and an empty body as null.
func (b Body) MarshalJSON() ([]byte, error) {
	switch b.Kind {
	case BodyJSON:
		if len(b.JSON) == 0 {
			return []byte("null"), nil
		}
		return b.JSON, nil
	case BodyForm:
		return json.Marshal(b.Form)
	case BodyText:
		return json.Marshal(b.Text)
	case BodyBinary:
		return json.Marshal(b.Raw)
	default:
		return []byte("null"), nil
	}
}
