package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
	"strings"
)

const (
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"
	mimeFormURL       = "application/x-www-form-urlencoded"
	mimeText          = "text/plain; charset=utf-8"
	mimeOctetStream   = "application/octet-stream"
)

// encodeBody produces the wire payload for spec and adjusts the
// Content-Type in header. A nil payload means no body.
//
// Rules, in order: multipart when attachments or form fields are present;
// nothing for a nil body; form-urlencoding for structured values when the
// Content-Type asks for it; JSON for other structured values; string
// coercion for everything else.
func encodeBody(spec *RequestSpec, header http.Header) ([]byte, error) {
	if len(spec.Attachments) > 0 || len(spec.Form) > 0 {
		payload, contentType, err := encodeMultipart(spec.Form, spec.Attachments)
		if err != nil {
			return nil, err
		}
		header.Del(headerContentType)
		header.Set(headerContentType, contentType)
		return payload, nil
	}

	if spec.Body == nil {
		return nil, nil
	}

	if isStructured(spec.Body) {
		marshal := spec.JSONMarshal
		if marshal == nil {
			marshal = json.Marshal
		}

		if strings.Contains(strings.ToLower(header.Get(headerContentType)), mimeFormURL) {
			if values, ok := formValues(spec.Body, marshal, spec.JSONUnmarshal); ok {
				return []byte(values.Encode()), nil
			}
		}

		if data, err := marshal(spec.Body); err == nil {
			if header.Get(headerContentType) == "" {
				header.Set(headerContentType, mimeJSON)
			}
			return data, nil
		}
	}

	return stringify(spec.Body, header)
}

// isStructured reports whether v is a plain map, struct, slice or array value
// (through pointers). Byte slices, readers and Stringers are not.
func isStructured(v any) bool {
	switch v.(type) {
	case []byte, io.Reader, fmt.Stringer:
		return false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}

// formValues converts a structured value into url.Values. Maps of strings
// convert directly; anything else round-trips through JSON into a flat object.
func formValues(v any, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) (url.Values, bool) {
	switch t := v.(type) {
	case url.Values:
		return t, true
	case map[string]string:
		out := make(url.Values, len(t))
		for k, s := range t {
			out.Set(k, s)
		}
		return out, true
	case map[string][]string:
		return url.Values(t), true
	}

	if unmarshal == nil {
		unmarshal = json.Unmarshal
	}
	data, err := marshal(v)
	if err != nil {
		return nil, false
	}
	var obj map[string]any
	if err := unmarshal(data, &obj); err != nil {
		return nil, false
	}

	out := make(url.Values, len(obj))
	for k, val := range obj {
		switch t := val.(type) {
		case nil:
			out.Set(k, "")
		case []any:
			for _, item := range t {
				out.Add(k, fmt.Sprint(item))
			}
		default:
			out.Set(k, fmt.Sprint(t))
		}
	}
	return out, true
}

func stringify(v any, header http.Header) ([]byte, error) {
	var data []byte
	switch t := v.(type) {
	case []byte:
		return t, nil
	case io.Reader:
		b, err := io.ReadAll(t)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		return b, nil
	case string:
		data = []byte(t)
	case fmt.Stringer:
		data = []byte(t.String())
	default:
		data = []byte(fmt.Sprint(t))
	}
	if header.Get(headerContentType) == "" {
		header.Set(headerContentType, mimeText)
	}
	return data, nil
}

// encodeMultipart writes form fields (sorted by key) followed by attachments
// in list order.
func encodeMultipart(form url.Values, attachments []Attachment) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range form[k] {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
	}

	for _, a := range attachments {
		part, err := createPart(w, a)
		if err != nil {
			return nil, "", err
		}
		if a.Reader != nil {
			if _, err := io.Copy(part, a.Reader); err != nil {
				return nil, "", fmt.Errorf("read attachment %q: %w", a.Name, err)
			}
		} else if _, err := part.Write(a.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func createPart(w *multipart.Writer, a Attachment) (io.Writer, error) {
	if a.FileName == "" && a.ContentType == "" {
		return w.CreateFormField(a.Name)
	}

	disposition := `form-data; name="` + escapeQuotes(a.Name) + `"`
	if a.FileName != "" {
		disposition += `; filename="` + escapeQuotes(a.FileName) + `"`
	}
	contentType := a.ContentType
	if contentType == "" {
		contentType = mimeOctetStream
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", disposition)
	h.Set(headerContentType, contentType)
	return w.CreatePart(h)
}

// escapeQuotes escapes quotes and backslashes in header parameter values.
func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
