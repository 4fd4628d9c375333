package index

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Attachment is one PDF entry extracted from a document payload.
type Attachment struct {
	Title string
	URL   string
}

// DecodePayload extracts attachments from a document's raw payload.
// The CMS stored these in legacy serialized form; newer exports use
// JSON. Tried in order: JSON, then the legacy format. Payloads that
// decode to nothing usable yield an empty slice.
func DecodePayload(payload string) []Attachment {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "a:0:{}" {
		return nil
	}

	if value := decodeJSON(payload); value != nil {
		return attachmentsFrom(value)
	}
	if value, err := decodeSerialized(payload); err == nil {
		return attachmentsFrom(value)
	}
	return nil
}

func decodeJSON(payload string) any {
	var value any
	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return nil
	}
	switch value.(type) {
	case map[string]any, []any:
		return value
	}
	return nil
}

// attachmentsFrom walks a decoded payload. A map with a "title" key is
// a single attachment; otherwise each element with a "title" key is
// one attachment. The file reference may be under "file" or "url".
func attachmentsFrom(value any) []Attachment {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v["title"]; ok {
			if a, ok := attachmentFromMap(v); ok {
				return []Attachment{a}
			}
			return nil
		}
		var attachments []Attachment
		for _, key := range sortedKeys(v) {
			if m, ok := v[key].(map[string]any); ok {
				if a, ok := attachmentFromMap(m); ok {
					attachments = append(attachments, a)
				}
			}
		}
		return attachments
	case []any:
		var attachments []Attachment
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				if a, ok := attachmentFromMap(m); ok {
					attachments = append(attachments, a)
				}
			}
		}
		return attachments
	}
	return nil
}

func attachmentFromMap(m map[string]any) (Attachment, bool) {
	title, _ := m["title"].(string)
	if title == "" {
		return Attachment{}, false
	}
	url, _ := m["file"].(string)
	if url == "" {
		url, _ = m["url"].(string)
	}
	return Attachment{Title: title, URL: url}, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Numeric string keys sort in entry order, others alphabetically.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keyLess(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func keyLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// decodeSerialized parses the subset of the legacy serialization
// format the CMS actually produced: arrays of strings, integers,
// booleans, doubles, nulls and nested arrays. String lengths count
// bytes.
func decodeSerialized(payload string) (any, error) {
	p := &serializedParser{data: payload}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return value, nil
}

type serializedParser struct {
	data string
	pos  int
}

func (p *serializedParser) parseValue() (any, error) {
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unexpected end of payload at offset %d", p.pos)
	}

	switch p.data[p.pos] {
	case 'a':
		return p.parseArray()
	case 's':
		return p.parseString()
	case 'i':
		n, err := p.parseScalar('i')
		if err != nil {
			return nil, err
		}
		return n, nil
	case 'b':
		n, err := p.parseScalar('b')
		if err != nil {
			return nil, err
		}
		return n != 0, nil
	case 'd':
		return p.parseDouble()
	case 'N':
		if err := p.expect("N;"); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported type marker %q at offset %d", p.data[p.pos], p.pos)
	}
}

// parseArray reads a:N:{key;value;...}. Keys become strings so the
// result is always a map.
func (p *serializedParser) parseArray() (map[string]any, error) {
	count, err := p.parseScalar('a')
	if err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	result := make(map[string]any, count)
	for i := int64(0); i < count; i++ {
		key, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		switch k := key.(type) {
		case string:
			result[k] = value
		case int64:
			result[strconv.FormatInt(k, 10)] = value
		default:
			return nil, fmt.Errorf("unsupported array key type %T", key)
		}
	}

	if err := p.expect("}"); err != nil {
		return nil, err
	}
	return result, nil
}

// parseString reads s:len:"bytes";
func (p *serializedParser) parseString() (string, error) {
	length, err := p.parseScalar('s')
	if err != nil {
		return "", err
	}
	if err := p.expect(`"`); err != nil {
		return "", err
	}
	end := p.pos + int(length)
	if end > len(p.data) {
		return "", fmt.Errorf("string length %d overruns payload", length)
	}
	value := p.data[p.pos:end]
	p.pos = end
	if err := p.expect(`";`); err != nil {
		return "", err
	}
	return value, nil
}

// parseScalar reads marker:digits: and returns the number. The
// trailing colon is consumed except for 'i' and 'b' values, which end
// with a semicolon instead.
func (p *serializedParser) parseScalar(marker byte) (int64, error) {
	if err := p.expect(string(marker) + ":"); err != nil {
		return 0, err
	}
	start := p.pos
	for p.pos < len(p.data) && (p.data[p.pos] == '-' || (p.data[p.pos] >= '0' && p.data[p.pos] <= '9')) {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at offset %d", start)
	}
	n, err := strconv.ParseInt(p.data[start:p.pos], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}

	switch marker {
	case 'i', 'b':
		return n, p.expect(";")
	default:
		return n, p.expect(":")
	}
}

func (p *serializedParser) parseDouble() (float64, error) {
	if err := p.expect("d:"); err != nil {
		return 0, err
	}
	end := strings.IndexByte(p.data[p.pos:], ';')
	if end < 0 {
		return 0, fmt.Errorf("unterminated double at offset %d", p.pos)
	}
	value, err := strconv.ParseFloat(p.data[p.pos:p.pos+end], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid double: %w", err)
	}
	p.pos += end + 1
	return value, nil
}

func (p *serializedParser) expect(token string) error {
	if !strings.HasPrefix(p.data[p.pos:], token) {
		return fmt.Errorf("expected %q at offset %d", token, p.pos)
	}
	p.pos += len(token)
	return nil
}
