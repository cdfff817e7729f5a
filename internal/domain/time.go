package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
	dateLayout      = "2006-01-02"
)

// Older documents carry zone-less local strings; they are read as UTC.
var legacyTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// Timestamp is an instant stored in UTC with millisecond precision.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(timestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}

	for _, layout := range legacyTimestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = NewTimestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	return NewDate(t.UTC().Date())
}

func ParseDate(s string) (Date, error) {
	for _, layout := range []string{dateLayout, "02/01/2006"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return NewDate(parsed.Date()), nil
		}
	}
	for _, layout := range legacyTimestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return DateOf(parsed), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) AddDays(days int) Date {
	return NewDate(d.Year(), d.Month(), d.Day()+days)
}

// DaysUntil returns other minus d in whole days.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
