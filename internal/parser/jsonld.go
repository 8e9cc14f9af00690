package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const jsonLDSelector = "script[type='application/ld+json']"

// findJSONLD returns the first embedded structured-data object whose @type is
// typ. Blocks that fail to decode are skipped. Top-level arrays and @graph
// containers are searched one level deep.
func findJSONLD(root *goquery.Selection, typ string) map[string]any {
	var found map[string]any
	root.Find(jsonLDSelector).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
			return true
		}
		found = matchJSONLD(data, typ)
		return found == nil
	})
	return found
}

func matchJSONLD(data any, typ string) map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok && hasType(obj, typ) {
				return obj
			}
		}
	case map[string]any:
		if hasType(v, typ) {
			return v
		}
		if graph, ok := v["@graph"].([]any); ok {
			return matchJSONLD(graph, typ)
		}
	}
	return nil
}

func hasType(obj map[string]any, typ string) bool {
	switch t := obj["@type"].(type) {
	case string:
		return t == typ
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && s == typ {
				return true
			}
		}
	}
	return false
}

// stringList accepts either a single string or a list and returns the string
// members.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// objectField returns obj[key] as an object. A list of objects yields its
// first member.
func objectField(obj map[string]any, key string) map[string]any {
	switch v := obj[key].(type) {
	case map[string]any:
		return v
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func itemListEntries(list map[string]any) []map[string]any {
	elements, _ := list["itemListElement"].([]any)
	entries := make([]map[string]any, 0, len(elements))
	for _, el := range elements {
		entry, ok := el.(map[string]any)
		if !ok {
			continue
		}
		if item := objectField(entry, "item"); item != nil {
			entries = append(entries, item)
			continue
		}
		if strings.TrimSpace(stringField(entry, "url")) != "" || stringField(entry, "name") != "" {
			entries = append(entries, entry)
			continue
		}
		entries = append(entries, map[string]any{})
	}
	return entries
}
