package index

import (
	"reflect"
	"testing"
)

func TestDecodePayloadJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []Attachment
	}{
		{
			name:    "array of attachments",
			payload: `[{"title":"قانون العمل","file":"https://x.com/labor.pdf"},{"title":"قانون الجزاء"},{"name":"no title"}]`,
			want: []Attachment{
				{Title: "قانون العمل", URL: "https://x.com/labor.pdf"},
				{Title: "قانون الجزاء"},
			},
		},
		{
			name:    "single attachment object",
			payload: `{"title":"دليل المرافعات","url":"https://x.com/guide.pdf"}`,
			want:    []Attachment{{Title: "دليل المرافعات", URL: "https://x.com/guide.pdf"}},
		},
		{
			name:    "file key preferred over url",
			payload: `{"title":"عقد","file":"file.pdf","url":"url.pdf"}`,
			want:    []Attachment{{Title: "عقد", URL: "file.pdf"}},
		},
		{
			name:    "object keyed by position",
			payload: `{"0":{"title":"أول"},"1":{"title":"ثاني"}}`,
			want:    []Attachment{{Title: "أول"}, {Title: "ثاني"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodePayload(tt.payload)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodePayload = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodePayloadSerialized(t *testing.T) {
	payload := `a:2:{i:0;a:2:{s:5:"title";s:9:"Labor Law";s:4:"file";s:19:"https://x.com/a.pdf";}i:1;a:1:{s:5:"title";s:6:"عقد";}}`
	want := []Attachment{
		{Title: "Labor Law", URL: "https://x.com/a.pdf"},
		{Title: "عقد"},
	}

	got := DecodePayload(payload)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodePayload = %+v, want %+v", got, want)
	}
}

func TestDecodePayloadSerializedSingle(t *testing.T) {
	payload := `a:2:{s:5:"title";s:9:"Labor Law";s:3:"url";s:5:"a.pdf";}`
	want := []Attachment{{Title: "Labor Law", URL: "a.pdf"}}

	got := DecodePayload(payload)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodePayload = %+v, want %+v", got, want)
	}
}

func TestDecodePayloadMalformed(t *testing.T) {
	payloads := []string{
		"",
		"a:0:{}",
		"garbage",
		`a:1:{i:0;`,
		`s:99:"short";`,
		`[1,2,3]`,
		`"just a string"`,
		`{"title":""}`,
	}

	for _, payload := range payloads {
		if got := DecodePayload(payload); len(got) != 0 {
			t.Errorf("DecodePayload(%q) = %+v, want empty", payload, got)
		}
	}
}

func TestDecodeSerializedScalars(t *testing.T) {
	value, err := decodeSerialized(`a:4:{s:1:"i";i:42;s:1:"b";b:1;s:1:"d";d:3.5;s:1:"n";N;}`)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", value)
	}
	if m["i"] != int64(42) || m["b"] != true || m["d"] != 3.5 || m["n"] != nil {
		t.Errorf("unexpected scalar values: %+v", m)
	}
}
