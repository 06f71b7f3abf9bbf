package pricing

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
)

// ChargeTable maps a province label to the ordered charges applied to a base price.
// It is immutable once constructed.
type ChargeTable struct {
	charges map[string][]Charge
}

// NewChargeTable validates and copies the supplied charges.
func NewChargeTable(in map[string][]Charge) (*ChargeTable, error) {
	charges := make(map[string][]Charge, len(in))
	for label, list := range in {
		if strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("%w: province label is required", ErrInvalidCharge)
		}
		copied := make([]Charge, len(list))
		for i, c := range list {
			if err := c.validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", label, err)
			}
			copied[i] = c
		}
		charges[label] = copied
	}
	return &ChargeTable{charges: charges}, nil
}

// DecodeChargeTable reads the {"<province label>": [{"label", "value"}]} payload.
func DecodeChargeTable(r io.Reader) (*ChargeTable, error) {
	var raw map[string][]Charge
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode charge table: %w", err)
	}
	return NewChargeTable(raw)
}

// Get returns a copy of the charges configured for the label.
func (t *ChargeTable) Get(label string) ([]Charge, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: charge table not loaded", ErrMissingProvinceConfig)
	}
	list, ok := t.charges[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingProvinceConfig, label)
	}
	out := make([]Charge, len(list))
	copy(out, list)
	return out, nil
}

// Labels returns the configured province labels in sorted order.
func (t *ChargeTable) Labels() []string {
	if t == nil {
		return nil
	}
	labels := make([]string, 0, len(t.charges))
	for label := range t.charges {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Len returns the number of configured provinces.
func (t *ChargeTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.charges)
}

// MarshalJSON emits the same shape DecodeChargeTable accepts.
func (t *ChargeTable) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.charges)
}

// TableHolder publishes the current charge table. Reconfiguration swaps the whole
// table; readers never observe a partial update.
type TableHolder struct {
	current atomic.Pointer[ChargeTable]
}

// NewTableHolder returns a holder seeded with t, which may be nil.
func NewTableHolder(t *ChargeTable) *TableHolder {
	h := &TableHolder{}
	if t != nil {
		h.current.Store(t)
	}
	return h
}

// Load returns the current table or nil before the first load.
func (h *TableHolder) Load() *ChargeTable {
	if h == nil {
		return nil
	}
	return h.current.Load()
}

// Replace publishes t.
func (h *TableHolder) Replace(t *ChargeTable) {
	h.current.Store(t)
}
