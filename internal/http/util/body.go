package util

import (
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/sifan077/PowerHook/internal/app/model"
)

const (
	mimeJSON      = "application/json"
	mimeForm      = "application/x-www-form-urlencoded"
	mimeMultipart = "multipart/form-data"
)

// MediaType returns the lower-cased media type of a Content-Type header value,
// tolerating malformed parameters.
func MediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsMultipart reports whether contentType announces a multipart form.
func IsMultipart(contentType string) bool {
	return MediaType(contentType) == mimeMultipart
}

// ParseBody interprets raw according to contentType. JSON and urlencoded bodies
// are decoded when they parse; anything else is kept verbatim as text or binary.
func ParseBody(contentType string, raw []byte) model.Body {
	if len(raw) == 0 {
		return model.EmptyBody()
	}

	switch mt := MediaType(contentType); {
	case mt == mimeJSON || strings.HasSuffix(mt, "+json"):
		if json.Valid(raw) {
			return model.JSONBody(raw)
		}
	case mt == mimeForm:
		if values, err := url.ParseQuery(string(raw)); err == nil {
			return model.FormBody(formValues(values), len(raw))
		}
	}

	return RawBody(raw)
}

// RawBody keeps raw as text when it is valid UTF-8 and as binary otherwise.
func RawBody(raw []byte) model.Body {
	if len(raw) == 0 {
		return model.EmptyBody()
	}
	if utf8.Valid(raw) {
		return model.TextBody(string(raw))
	}
	return model.BinaryBody(raw)
}

// MultipartBody converts a parsed multipart form. File parts are summarised.
func MultipartBody(form *multipart.Form, length int) model.Body {
	values := formValues(form.Value)
	for name, headers := range form.File {
		files := make([]model.FormFile, 0, len(headers))
		for _, fh := range headers {
			files = append(files, model.FormFile{
				Filename:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
			})
		}
		if len(files) == 1 {
			values[name] = files[0]
		} else {
			values[name] = files
		}
	}
	return model.FormBody(values, length)
}

func formValues(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for name, vs := range values {
		if len(vs) == 1 {
			out[name] = vs[0]
			continue
		}
		out[name] = append([]string(nil), vs...)
	}
	return out
}
