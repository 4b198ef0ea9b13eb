package httpclient

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
)

func encodeFor(t *testing.T, spec RequestSpec) ([]byte, http.Header) {
	t.Helper()
	header := spec.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	payload, err := encodeBody(&spec, header)
	if err != nil {
		t.Fatalf("encodeBody() error: %v", err)
	}
	return payload, header
}

type formPart struct {
	name     string
	fileName string
	header   textproto.MIMEHeader
	data     []byte
}

// readParts drains every part eagerly; a multipart.Part is only readable
// until the next call to NextPart.
func readParts(t *testing.T, payload []byte, contentType string) []formPart {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("ParseMediaType error: %v", err)
	}
	if mediaType != "multipart/form-data" {
		t.Fatalf("media type = %q, want multipart/form-data", mediaType)
	}

	mr := multipart.NewReader(bytes.NewReader(payload), params["boundary"])
	var parts []formPart
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return parts
		}
		if err != nil {
			t.Fatalf("NextPart error: %v", err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("read part error: %v", err)
		}
		parts = append(parts, formPart{
			name:     part.FormName(),
			fileName: part.FileName(),
			header:   part.Header,
			data:     data,
		})
	}
}

func TestEncodeBody_NilBody(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{})
	if payload != nil {
		t.Errorf("expected no payload, got %q", payload)
	}
	if header.Get("Content-Type") != "" {
		t.Errorf("expected no Content-Type, got %q", header.Get("Content-Type"))
	}
}

func TestEncodeBody_StructAsJSON(t *testing.T) {
	type user struct {
		Name string `json:"name"`
	}
	payload, header := encodeFor(t, RequestSpec{Body: user{Name: "Bob"}})

	if string(payload) != `{"name":"Bob"}` {
		t.Errorf("payload = %s", payload)
	}
	if header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", header.Get("Content-Type"))
	}
}

func TestEncodeBody_JSONKeepsExplicitContentType(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{
		Header: http.Header{"Content-Type": {"application/vnd.api+json"}},
		Body:   map[string]int{"a": 1},
	})
	if string(payload) != `{"a":1}` {
		t.Errorf("payload = %s", payload)
	}
	if header.Get("Content-Type") != "application/vnd.api+json" {
		t.Errorf("Content-Type overwritten: %q", header.Get("Content-Type"))
	}
}

func TestEncodeBody_SliceAsJSON(t *testing.T) {
	payload, _ := encodeFor(t, RequestSpec{Body: []int{1, 2, 3}})
	if string(payload) != "[1,2,3]" {
		t.Errorf("payload = %s", payload)
	}
}

func TestEncodeBody_URLEncodedForm(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{
		Header: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
		Body:   map[string]string{"b": "2", "a": "x y"},
	})
	if string(payload) != "a=x+y&b=2" {
		t.Errorf("payload = %s", payload)
	}
	if header.Get("Content-Type") != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", header.Get("Content-Type"))
	}
}

func TestEncodeBody_URLEncodedStruct(t *testing.T) {
	type login struct {
		User  string   `json:"user"`
		Roles []string `json:"roles"`
	}
	payload, _ := encodeFor(t, RequestSpec{
		Header: http.Header{"Content-Type": {"application/x-www-form-urlencoded; charset=utf-8"}},
		Body:   login{User: "amy", Roles: []string{"a", "b"}},
	})

	got, err := url.ParseQuery(string(payload))
	if err != nil {
		t.Fatalf("ParseQuery error: %v", err)
	}
	if got.Get("user") != "amy" || len(got["roles"]) != 2 {
		t.Errorf("unexpected form %v", got)
	}
}

func TestEncodeBody_StringIsText(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{Body: "hello"})
	if string(payload) != "hello" {
		t.Errorf("payload = %s", payload)
	}
	if !strings.HasPrefix(header.Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type = %q", header.Get("Content-Type"))
	}
}

func TestEncodeBody_NumberIsStringified(t *testing.T) {
	payload, _ := encodeFor(t, RequestSpec{Body: 42})
	if string(payload) != "42" {
		t.Errorf("payload = %s", payload)
	}
}

func TestEncodeBody_BytesPassThrough(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{Body: []byte{0x01, 0x02}})
	if !bytes.Equal(payload, []byte{0x01, 0x02}) {
		t.Errorf("payload = %v", payload)
	}
	if header.Get("Content-Type") != "" {
		t.Errorf("unexpected Content-Type %q", header.Get("Content-Type"))
	}
}

func TestEncodeBody_ReaderIsReadFully(t *testing.T) {
	payload, _ := encodeFor(t, RequestSpec{Body: bytes.NewBufferString("streamed")})
	if string(payload) != "streamed" {
		t.Errorf("payload = %s", payload)
	}
}

func TestEncodeBody_ReaderError(t *testing.T) {
	boom := errors.New("disk gone")
	spec := RequestSpec{Body: io.MultiReader(strings.NewReader("x"), errReader{boom})}
	_, err := encodeBody(&spec, make(http.Header))
	if !errors.Is(err, boom) {
		t.Errorf("expected reader error, got %v", err)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestEncodeBody_MultipartReplacesContentType(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   map[string]string{"ignored": "yes"},
		Form:   url.Values{"title": {"report"}},
		Attachments: []Attachment{
			{Name: "file", FileName: "a.txt", ContentType: "text/plain", Data: []byte("alpha")},
		},
	})

	ct := header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data; boundary=") {
		t.Fatalf("Content-Type = %q", ct)
	}

	parts := readParts(t, payload, ct)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].name != "title" {
		t.Errorf("first part = %q, want title", parts[0].name)
	}
	if parts[1].fileName != "a.txt" || parts[1].header.Get("Content-Type") != "text/plain" {
		t.Errorf("unexpected file part headers %v", parts[1].header)
	}
	if string(parts[1].data) != "alpha" {
		t.Errorf("file content = %q", parts[1].data)
	}
}

func TestEncodeBody_MultipartOrder(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{
		Form: url.Values{"b": {"2"}, "a": {"1", "1b"}},
		Attachments: []Attachment{
			{Name: "second", FileName: "2.bin", Data: []byte("2")},
			{Name: "first", FileName: "1.bin", Reader: strings.NewReader("1")},
		},
	})

	var names []string
	for _, p := range readParts(t, payload, header.Get("Content-Type")) {
		names = append(names, p.name)
	}
	want := []string{"a", "a", "b", "second", "first"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("part order = %v, want %v", names, want)
	}
}

func TestEncodeBody_AttachmentDefaultsToOctetStream(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{
		Attachments: []Attachment{{Name: "blob", FileName: "x.bin", Data: []byte{0xff}}},
	})
	parts := readParts(t, payload, header.Get("Content-Type"))
	if got := parts[0].header.Get("Content-Type"); got != "application/octet-stream" {
		t.Errorf("part Content-Type = %q", got)
	}
}

func TestEncodeBody_EscapesQuotesInFileName(t *testing.T) {
	payload, header := encodeFor(t, RequestSpec{
		Attachments: []Attachment{{Name: "f", FileName: `we"ird.txt`, Data: []byte("x")}},
	})
	parts := readParts(t, payload, header.Get("Content-Type"))
	if parts[0].fileName != `we"ird.txt` {
		t.Errorf("FileName = %q", parts[0].fileName)
	}
}

func TestEncodeBody_CustomMarshal(t *testing.T) {
	spec := RequestSpec{
		Body:        map[string]int{"a": 1},
		JSONMarshal: func(any) ([]byte, error) { return []byte(`"custom"`), nil },
	}
	payload, _ := encodeFor(t, spec)
	if string(payload) != `"custom"` {
		t.Errorf("payload = %s", payload)
	}
}
