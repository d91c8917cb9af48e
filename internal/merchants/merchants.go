// Package merchants holds the closed set of partner merchants eligible as
// deduction targets. Each merchant has a display name used in selection UIs
// and a canonical short label written to history entries.
package merchants

import (
	"fmt"
	"strings"

	"github.com/fidelicard/loyalty/internal/config"
)

// Reserved history labels used by the ledger itself. Merchants may not
// claim them.
const (
	// LabelRecharge marks recharge history entries.
	LabelRecharge = "RECHARGE"
	// LabelManual marks manual credit addition history entries.
	LabelManual = "MANUAL"
)

// Set is an immutable merchant allow-list.
type Set struct {
	labelByName map[string]string
	names       []string
}

// NewSet builds a Set from configured merchants. A merchant with no label
// uses its display name as the history label.
func NewSet(list []config.Merchant) (*Set, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("merchants: empty allow-list")
	}
	s := &Set{
		labelByName: make(map[string]string, len(list)),
		names:       make([]string, 0, len(list)),
	}
	for _, m := range list {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("merchants: empty merchant name")
		}
		if _, dup := s.labelByName[name]; dup {
			return nil, fmt.Errorf("merchants: duplicate merchant %q", name)
		}
		label := strings.TrimSpace(m.Label)
		if label == "" {
			label = name
		}
		if label == LabelRecharge || label == LabelManual {
			return nil, fmt.Errorf("merchants: label %q is reserved", label)
		}
		s.labelByName[name] = label
		s.names = append(s.names, name)
	}
	return s, nil
}

// Label resolves a merchant display name to its history label.
func (s *Set) Label(name string) (string, bool) {
	label, ok := s.labelByName[strings.TrimSpace(name)]
	return label, ok
}

// Names returns the merchant display names in configuration order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
