package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"persona-card-service/internal/domain"
)

// DedupHash fingerprints the scored content of a record for one target.
// Envelope fields (target, hash, timestamps, labels) are not part of the
// content, so the hash can be recomputed from a stored record at any time.
func DedupHash(answer domain.ScoredAnswer, targetID string) string {
	data, err := json.Marshal(answer)
	if err != nil {
		// ScoredAnswer holds only strings, ints, bools and slices.
		panic(fmt.Sprintf("marshal scored answer: %v", err))
	}
	return HashJSON(data, targetID)
}

// HashJSON fingerprints an arbitrary JSON document for one target. Key order
// in the document does not affect the result.
func HashJSON(data []byte, targetID string) string {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		v = string(data)
	}
	return HashValue(v, targetID)
}

// HashValue fingerprints a decoded JSON value for one target with 32-bit FNV-1a.
func HashValue(v any, targetID string) string {
	if targetID == "" {
		targetID = domain.DraftTargetID
	}
	var b strings.Builder
	// Both halves are JSON-escaped, so neither contains a raw newline.
	b.WriteString(quote(targetID))
	b.WriteByte('\n')
	writeCanonical(&b, v)

	h := fnv.New32a()
	_, _ = h.Write([]byte(b.String()))
	return fmt.Sprintf("%08x", h.Sum32())
}

// RecordHash recomputes the hash of a stored record under its own target.
func RecordHash(rec domain.AnswerRecord) string {
	return DedupHash(rec.ScoredAnswer, rec.ScoringTargetID)
}

// VerifyHash reports whether a stored record's hash matches its content.
func VerifyHash(rec domain.AnswerRecord) bool {
	return rec.DedupHash != "" && rec.DedupHash == RecordHash(rec)
}

// IsDuplicate reports whether hash already exists among records of targetID.
func IsDuplicate(records []domain.AnswerRecord, targetID, hash string) bool {
	for _, r := range records {
		if r.ScoringTargetID == targetID && r.DedupHash == hash {
			return true
		}
	}
	return false
}

// Canonical renders v with sorted object keys, arrays in order, numbers as
// decoded and strings JSON-escaped.
func Canonical(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case json.Number:
		b.WriteString(t.String())
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case string:
		b.WriteString(quote(t))
	case []any:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(k))
			b.WriteByte(':')
			writeCanonical(b, t[k])
		}
		b.WriteByte('}')
	default:
		// Typed values are brought into decoded-JSON form first.
		data, err := json.Marshal(t)
		if err != nil {
			b.WriteString(quote(fmt.Sprint(t)))
			return
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var generic any
		if err := dec.Decode(&generic); err != nil {
			b.WriteString(quote(string(data)))
			return
		}
		writeCanonical(b, generic)
	}
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
