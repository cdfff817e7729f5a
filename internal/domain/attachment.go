package domain

import (
	"bytes"
	"encoding/json"
	"io"
)

// AttachmentRef points at a blob in the attachment store.
type AttachmentRef struct {
	Token        string `json:"token"`
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type,omitempty"`
	Size         int64  `json:"size,omitempty"`

	Unknown map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts both the structured shape and the legacy plain
// filename. A legacy filename becomes its own token so it stays resolvable.
func (a *AttachmentRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*a = AttachmentRef{Token: name, OriginalName: name}
		return nil
	}

	type plain AttachmentRef
	var p plain
	unknown, err := DecodeRecord(trimmed, &p)
	if err != nil {
		return err
	}
	*a = AttachmentRef(p)
	a.Unknown = unknown
	return nil
}

// MarshalJSON always writes the structured shape.
func (a AttachmentRef) MarshalJSON() ([]byte, error) {
	type plain AttachmentRef
	return EncodeRecord(plain(a), a.Unknown)
}

// Upload is a file received from a caller, not yet stored.
type Upload struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Attachment is a blob read back from the store.
type Attachment struct {
	Token       string
	Name        string
	ContentType string
	Data        []byte
}
