package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"incident-workflow/internal/pkg/catalog"
)

type NNCClass string

const (
	NNCNonConformity    NNCClass = "Non-conformity"
	NNCRiskCircumstance NNCClass = "Risk circumstance"
	NNCNearMiss         NNCClass = "Near miss"
	NNCEventWithoutHarm NNCClass = "Event-without-harm"
	NNCEventWithHarm    NNCClass = "Event-with-harm"
)

func (c NNCClass) IsValid() bool {
	switch c {
	case NNCNonConformity, NNCRiskCircumstance, NNCNearMiss, NNCEventWithoutHarm, NNCEventWithHarm:
		return true
	default:
		return false
	}
}

type DamageLevel string

const (
	DamageLight    DamageLevel = "Light"
	DamageModerate DamageLevel = "Moderate"
	DamageSevere   DamageLevel = "Severe"
	DamageDeath    DamageLevel = "Death"
)

func (d DamageLevel) IsValid() bool {
	switch d {
	case DamageLight, DamageModerate, DamageSevere, DamageDeath:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) IsValid() bool {
	return p.Rank() > 0
}

// Rank orders priorities from Low (1) to Critical (4); unknown values are 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 0
	}
}

type EventType string

const (
	EventClinical           EventType = "Clinical"
	EventNonClinical        EventType = "Non-clinical"
	EventOccupational       EventType = "Occupational"
	EventTechnicalComplaint EventType = "TechnicalComplaint"
	EventOther              EventType = "Other"
)

func (e EventType) IsValid() bool {
	switch e {
	case EventClinical, EventNonClinical, EventOccupational, EventTechnicalComplaint, EventOther:
		return true
	default:
		return false
	}
}

// neverEventPlaceholder is the unselected option of the classification form.
const neverEventPlaceholder = "Select"

type Classification struct {
	NNCClass          NNCClass     `json:"nnc_class"`
	DamageLevel       *DamageLevel `json:"damage_level,omitempty"`
	Priority          Priority     `json:"priority"`
	NeverEvent        string       `json:"never_event"`
	SentinelEvent     bool         `json:"sentinel_event"`
	EventType         EventType    `json:"event_type"`
	EventSubtypes     []string     `json:"event_subtypes,omitempty"`
	EventSubtypeText  *string      `json:"event_subtype_text,omitempty"`
	WHOClassification []string     `json:"who_classification"`
	Notes             string       `json:"notes"`
	ClassifierID      uuid.UUID    `json:"classifier_id"`
	ClassifierName    string       `json:"classifier_name"`
	ClassifiedAt      Timestamp    `json:"classified_at"`
	RequiresApproval  bool         `json:"requires_approval"`
	DeadlineDays      int          `json:"deadline_days"`
	DeadlineDate      *Date        `json:"deadline_date,omitempty"`

	Unknown map[string]json.RawMessage `json:"-"`
}

// ClassificationDraft collects classification fields across form steps.
// Nothing is checked until Build.
type ClassificationDraft struct {
	NNCClass          NNCClass     `json:"nnc_class"`
	DamageLevel       *DamageLevel `json:"damage_level,omitempty"`
	Priority          Priority     `json:"priority"`
	NeverEvent        string       `json:"never_event"`
	SentinelEvent     bool         `json:"sentinel_event"`
	EventType         EventType    `json:"event_type"`
	EventSubtypes     []string     `json:"event_subtypes,omitempty"`
	EventSubtypeText  *string      `json:"event_subtype_text,omitempty"`
	WHOClassification []string     `json:"who_classification"`
	Notes             string       `json:"notes"`
	RequiresApproval  bool         `json:"requires_approval"`
}

func (d *ClassificationDraft) SetNNC(class NNCClass, damage *DamageLevel) *ClassificationDraft {
	d.NNCClass = class
	d.DamageLevel = damage
	return d
}

func (d *ClassificationDraft) SetPriority(p Priority) *ClassificationDraft {
	d.Priority = p
	return d
}

func (d *ClassificationDraft) SetNeverEvent(value string, sentinel bool) *ClassificationDraft {
	d.NeverEvent = value
	d.SentinelEvent = sentinel
	return d
}

func (d *ClassificationDraft) SetEventType(t EventType, subtypes []string, text *string) *ClassificationDraft {
	d.EventType = t
	d.EventSubtypes = subtypes
	d.EventSubtypeText = text
	return d
}

func (d *ClassificationDraft) SetWHO(classes ...string) *ClassificationDraft {
	d.WHOClassification = classes
	return d
}

func (d *ClassificationDraft) SetApproval(required bool) *ClassificationDraft {
	d.RequiresApproval = required
	return d
}

// Validate checks the draft against the classification rules and returns
// the first violation.
func (d ClassificationDraft) Validate() error {
	cat := catalog.Default()

	if d.NNCClass == "" {
		return ValidationError("nnc class is required")
	}
	if !d.NNCClass.IsValid() {
		return ValidationError("unknown nnc class %q", d.NNCClass)
	}
	if d.NNCClass == NNCEventWithHarm {
		if d.DamageLevel == nil || *d.DamageLevel == "" {
			return ValidationError("damage level required for Event-with-harm")
		}
		if !d.DamageLevel.IsValid() {
			return ValidationError("unknown damage level %q", *d.DamageLevel)
		}
	} else if d.DamageLevel != nil {
		return ValidationError("damage level only applies to Event-with-harm")
	}

	if d.Priority == "" {
		return ValidationError("priority is required")
	}
	if !d.Priority.IsValid() {
		return ValidationError("unknown priority %q", d.Priority)
	}

	if isBlank(d.NeverEvent) || d.NeverEvent == neverEventPlaceholder {
		return ValidationError("never event selection is required")
	}
	if !cat.IsNeverEvent(d.NeverEvent) {
		return ValidationError("unknown never event %q", d.NeverEvent)
	}

	if err := d.validateEventType(cat); err != nil {
		return err
	}

	if len(d.WHOClassification) == 0 {
		return ValidationError("at least one WHO classification is required")
	}
	seen := make(map[string]bool, len(d.WHOClassification))
	for _, who := range d.WHOClassification {
		if !cat.IsWHOClass(who) {
			return ValidationError("unknown WHO classification %q", who)
		}
		if seen[who] {
			return ValidationError("duplicate WHO classification %q", who)
		}
		seen[who] = true
	}

	return nil
}

func (d ClassificationDraft) validateEventType(cat *catalog.Catalog) error {
	if d.EventType == "" {
		return ValidationError("principal event type is required")
	}
	if !d.EventType.IsValid() {
		return ValidationError("unknown principal event type %q", d.EventType)
	}

	switch d.EventType {
	case EventClinical, EventNonClinical, EventOccupational:
		if len(d.EventSubtypes) == 0 {
			return ValidationError("at least one subtype is required for %s events", d.EventType)
		}
		for _, sub := range d.EventSubtypes {
			if !cat.IsSubtype(string(d.EventType), sub) {
				return ValidationError("subtype %q is not valid for %s events", sub, d.EventType)
			}
		}
		if d.EventSubtypeText != nil {
			return ValidationError("%s events take subtypes from the list, not free text", d.EventType)
		}
	case EventOther:
		if d.EventSubtypeText == nil || isBlank(*d.EventSubtypeText) {
			return ValidationError("subtype description is required for Other events")
		}
		if len(d.EventSubtypes) > 0 {
			return ValidationError("Other events take a free-text subtype")
		}
	case EventTechnicalComplaint:
		if len(d.EventSubtypes) > 0 {
			return ValidationError("TechnicalComplaint events take a free-text subtype")
		}
	}
	return nil
}

// Build validates the draft and produces the immutable classification with
// its deadline computed from the classification date.
func (d ClassificationDraft) Build(classifier *User, at time.Time) (*Classification, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	classifiedAt := NewTimestamp(at)
	days := DeadlineDays(d.NNCClass, d.DamageLevel)
	deadline := DateOf(classifiedAt.Time).AddDays(days)

	c := &Classification{
		NNCClass:          d.NNCClass,
		DamageLevel:       copyPtr(d.DamageLevel),
		Priority:          d.Priority,
		NeverEvent:        d.NeverEvent,
		SentinelEvent:     d.SentinelEvent,
		EventType:         d.EventType,
		EventSubtypes:     append([]string(nil), d.EventSubtypes...),
		EventSubtypeText:  copyPtr(d.EventSubtypeText),
		WHOClassification: append([]string(nil), d.WHOClassification...),
		Notes:             d.Notes,
		ClassifierID:      classifier.ID,
		ClassifierName:    classifier.DisplayName(),
		ClassifiedAt:      classifiedAt,
		RequiresApproval:  d.RequiresApproval,
		DeadlineDays:      days,
		DeadlineDate:      &deadline,
	}
	return c, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
