package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
)

// DecodeRecord fills v from data and returns the fields of data that v's
// struct type does not declare, or nil when there are none.
func DecodeRecord(data []byte, v any) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	known := jsonFieldNames(reflect.TypeOf(v).Elem())
	for key := range raw {
		if known[key] {
			delete(raw, key)
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// EncodeRecord marshals v and adds back the fields captured by DecodeRecord.
// Declared fields always win over captured ones.
func EncodeRecord(v any, unknown map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(unknown) == 0 {
		return data, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range unknown {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

var fieldNameCache sync.Map

// jsonFieldNames lists every key the type may emit, including omitempty
// fields, so a cleared optional field is never mistaken for an unknown one.
func jsonFieldNames(t reflect.Type) map[string]bool {
	if cached, ok := fieldNameCache.Load(t); ok {
		return cached.(map[string]bool)
	}

	names := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "" {
			name = field.Name
		}
		names[name] = true
	}

	fieldNameCache.Store(t, names)
	return names
}

// Records nested in a notification keep the fields they do not declare,
// so rewriting a record written by another version loses nothing.

func (c Classification) MarshalJSON() ([]byte, error) {
	type plain Classification
	return EncodeRecord(plain(c), c.Unknown)
}

func (c *Classification) UnmarshalJSON(data []byte) error {
	type plain Classification
	var p plain
	unknown, err := DecodeRecord(data, &p)
	if err != nil {
		return err
	}
	*c = Classification(p)
	c.Unknown = unknown
	return nil
}

func (a ActionEntry) MarshalJSON() ([]byte, error) {
	type plain ActionEntry
	return EncodeRecord(plain(a), a.Unknown)
}

func (a *ActionEntry) UnmarshalJSON(data []byte) error {
	type plain ActionEntry
	var p plain
	unknown, err := DecodeRecord(data, &p)
	if err != nil {
		return err
	}
	*a = ActionEntry(p)
	a.Unknown = unknown
	return nil
}

func (h HistoryEntry) MarshalJSON() ([]byte, error) {
	type plain HistoryEntry
	return EncodeRecord(plain(h), h.Unknown)
}

func (h *HistoryEntry) UnmarshalJSON(data []byte) error {
	type plain HistoryEntry
	var p plain
	unknown, err := DecodeRecord(data, &p)
	if err != nil {
		return err
	}
	*h = HistoryEntry(p)
	h.Unknown = unknown
	return nil
}

func (r ReviewRecord) MarshalJSON() ([]byte, error) {
	type plain ReviewRecord
	return EncodeRecord(plain(r), r.Unknown)
}

func (r *ReviewRecord) UnmarshalJSON(data []byte) error {
	type plain ReviewRecord
	var p plain
	unknown, err := DecodeRecord(data, &p)
	if err != nil {
		return err
	}
	*r = ReviewRecord(p)
	r.Unknown = unknown
	return nil
}

func (r ApprovalRecord) MarshalJSON() ([]byte, error) {
	type plain ApprovalRecord
	return EncodeRecord(plain(r), r.Unknown)
}

func (r *ApprovalRecord) UnmarshalJSON(data []byte) error {
	type plain ApprovalRecord
	var p plain
	unknown, err := DecodeRecord(data, &p)
	if err != nil {
		return err
	}
	*r = ApprovalRecord(p)
	r.Unknown = unknown
	return nil
}

func (r RejectionRecord) MarshalJSON() ([]byte, error) {
	type plain RejectionRecord
	return EncodeRecord(plain(r), r.Unknown)
}

func (r *RejectionRecord) UnmarshalJSON(data []byte) error {
	type plain RejectionRecord
	var p plain
	unknown, err := DecodeRecord(data, &p)
	if err != nil {
		return err
	}
	*r = RejectionRecord(p)
	r.Unknown = unknown
	return nil
}

func (r ConclusionRecord) MarshalJSON() ([]byte, error) {
	type plain ConclusionRecord
	return EncodeRecord(plain(r), r.Unknown)
}

func (r *ConclusionRecord) UnmarshalJSON(data []byte) error {
	type plain ConclusionRecord
	var p plain
	unknown, err := DecodeRecord(data, &p)
	if err != nil {
		return err
	}
	*r = ConclusionRecord(p)
	r.Unknown = unknown
	return nil
}
