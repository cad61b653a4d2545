package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	keyedLine       = regexp.MustCompile(`^(\s*)"([^"]+)":\s*(.*)$`)
	jsonLiteral     = regexp.MustCompile(`^(-?\d+(\.\d+)?([eE][+-]?\d+)?|true|false|null)$`)
	emptyKeyedValue = regexp.MustCompile(`("[^"]+":)\s*,`)
	emptyValue      = regexp.MustCompile(`:\s*,`)
	doubleComma     = regexp.MustCompile(`,\s*,`)
	innerNewlines   = regexp.MustCompile(`\n\s*`)
	danglingComma   = regexp.MustCompile(`,\s*([}\]])`)
)

// RepairMetadata fixes the damage automation tools do to the embedded
// metadata block. The repairs run in a fixed order:
//
//  1. an unquoted, possibly multi-line value becomes one quoted string
//  2. "key": , becomes "key": "",
//  3. any remaining ": ," becomes ": "","
//  4. newlines collapse to single spaces
//
// Doubled and dangling commas left behind are removed last.
func RepairMetadata(text string) string {
	text = quoteBareValues(text)
	text = emptyKeyedValue.ReplaceAllString(text, `$1 "",`)
	text = emptyValue.ReplaceAllString(text, `: "",`)
	text = innerNewlines.ReplaceAllString(text, " ")
	text = doubleComma.ReplaceAllString(text, ",")
	return danglingComma.ReplaceAllString(text, "$1")
}

func quoteBareValues(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		m := keyedLine.FindStringSubmatch(lines[i])
		if m == nil {
			out = append(out, lines[i])
			continue
		}
		indent, key, value := m[1], m[2], strings.TrimSpace(m[3])
		if !isBareValue(value) {
			out = append(out, lines[i])
			continue
		}

		parts := []string{}
		if value != "" {
			parts = append(parts, value)
		}
		for i+1 < len(lines) && continuesBareValue(lines[i+1]) {
			i++
			parts = append(parts, strings.TrimSpace(lines[i]))
		}
		if len(parts) == 0 {
			out = append(out, indent+strconv.Quote(key)+`: "",`)
			continue
		}

		joined := strings.TrimSuffix(strings.Join(parts, " "), ",")
		out = append(out, indent+strconv.Quote(key)+": "+strconv.Quote(strings.TrimSpace(joined))+",")
	}
	return strings.Join(out, "\n")
}

// isBareValue reports a value that is not valid JSON as written
func isBareValue(value string) bool {
	if value == "" {
		return true
	}
	switch value[0] {
	case '"', '{', '[', ',':
		return false
	}
	return !jsonLiteral.MatchString(strings.TrimSuffix(value, ","))
}

func continuesBareValue(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '"', '}', ']', '{', '[':
		return false
	}
	return true
}

// parseMetadataJSON decodes a metadata block, keeping numbers exact. The
// block is repaired only when it does not decode as written.
func parseMetadataJSON(text string) (map[string]interface{}, error) {
	if meta, err := decodeMetadata(text); err == nil {
		return meta, nil
	}
	return decodeMetadata(RepairMetadata(text))
}

func decodeMetadata(text string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var meta map[string]interface{}
	if err := dec.Decode(&meta); err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, errors.New("metadata block is not an object")
	}
	return meta, nil
}
