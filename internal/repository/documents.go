package repository

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// appendCapped appends entry to the JSON-encoded list raw and keeps the
// newest limit items. raw may be empty.
func appendCapped(raw []byte, entry any, limit int) ([]byte, error) {
	var items []json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			// A corrupt list is replaced rather than blocking every later append.
			items = nil
		}
	}
	enc, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	items = append(items, enc)
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return json.Marshal(items)
}

// decodeList decodes raw into dest (pointer to slice); empty input yields an
// empty slice.
func decodeList(raw []byte, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("decode list: dest must be a pointer to a slice, got %T", dest)
	}
	if len(raw) == 0 {
		rv.Elem().Set(reflect.MakeSlice(rv.Elem().Type(), 0, 0))
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	return nil
}

// joinRaw builds a JSON array from already-encoded items.
func joinRaw(items []string) []byte {
	size := 2
	for _, it := range items {
		size += len(it) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, '[')
	for i, it := range items {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, it...)
	}
	return append(buf, ']')
}
