package pii

import (
	"strings"

	"github.com/V4T54L/service-portal/internal/domain"
)

const maskRune = "*"

// Masker hides most of an identifier when audit entries are displayed.
type Masker struct {
	edgeKinds  map[domain.Kind]struct{}
	edgeFields map[domain.Field]struct{}
}

// NewMasker creates a Masker. Values of the given kinds keep only their
// first and last three characters; everything else keeps its last four.
func NewMasker(kinds []domain.Kind) *Masker {
	m := &Masker{
		edgeKinds:  make(map[domain.Kind]struct{}, len(kinds)),
		edgeFields: make(map[domain.Field]struct{}),
	}
	for _, k := range kinds {
		m.edgeKinds[k] = struct{}{}
		switch k {
		case domain.KindPhone:
			m.edgeFields[domain.FieldPhone] = struct{}{}
		case domain.KindNationalID:
			m.edgeFields[domain.FieldNationalID] = struct{}{}
		}
	}
	return m
}

// NewDefaultMasker treats phone numbers and national IDs as sensitive.
func NewDefaultMasker() *Masker {
	return NewMasker([]domain.Kind{domain.KindPhone, domain.KindNationalID})
}

// Mask returns the display form of value for kind.
func (m *Masker) Mask(kind domain.Kind, value string) string {
	v := strings.TrimSpace(value)
	r := []rune(v)
	if _, ok := m.edgeKinds[kind]; ok && len(r) >= 6 {
		return string(r[:3]) + strings.Repeat(maskRune, 3) + string(r[len(r)-3:])
	}
	if len(r) > 4 {
		return strings.Repeat(maskRune, len(r)-4) + string(r[len(r)-4:])
	}
	return v
}

// RedactSnapshot masks the sensitive fields of an entry's snapshot in place.
func (m *Masker) RedactSnapshot(entry *domain.LookupHistoryEntry) {
	if len(entry.Snapshot) == 0 {
		return
	}
	redacted := entry.Snapshot.Clone()
	for f := range m.edgeFields {
		if v := redacted.Get(f); v != "" {
			redacted[f] = m.Mask(kindOf(f), v)
		}
	}
	entry.Snapshot = redacted
}

func kindOf(f domain.Field) domain.Kind {
	if f == domain.FieldPhone {
		return domain.KindPhone
	}
	return domain.KindNationalID
}
