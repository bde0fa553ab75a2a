package models

import (
	"encoding/json"
	"fmt"
)

// Limit is a credit ceiling or remaining count: either a finite number or
// unlimited. The tagged representation replaces the legacy "-1 means
// unlimited" convention so arithmetic can never be applied to the sentinel
// by accident; -1 survives only at the JSON boundary for wire compatibility.
type Limit struct {
	unlimited bool
	n         int
}

// Limited builds a finite limit. Negative input clamps to zero.
func Limited(n int) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{n: n}
}

// Unlimited builds the unlimited limit.
func Unlimited() Limit {
	return Limit{unlimited: true}
}

// IsUnlimited reports whether the limit is unbounded. Gating decisions must
// check this, never compare the numeric value.
func (l Limit) IsUnlimited() bool { return l.unlimited }

// Value returns the finite value and true, or 0 and false when unlimited.
func (l Limit) Value() (int, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// Remaining subtracts used from a ceiling, flooring at zero. Unlimited
// propagates unchanged.
func (l Limit) Remaining(used int) Limit {
	if l.unlimited {
		return l
	}
	rem := l.n - used
	if rem < 0 {
		rem = 0
	}
	return Limited(rem)
}

// Exhausted reports whether a finite limit has reached zero.
func (l Limit) Exhausted() bool {
	return !l.unlimited && l.n <= 0
}

// Decrement returns the limit reduced by one, flooring at zero. Unlimited
// never decrements.
func (l Limit) Decrement() Limit {
	if l.unlimited {
		return l
	}
	return Limited(l.n - 1)
}

// Increment returns the limit increased by one. Unlimited never changes.
func (l Limit) Increment() Limit {
	if l.unlimited {
		return l
	}
	return Limited(l.n + 1)
}

// DisplayValue substitutes 999 for unlimited. For display aggregation only;
// gating always checks IsUnlimited directly.
func (l Limit) DisplayValue() int {
	if l.unlimited {
		return 999
	}
	return l.n
}

func (l Limit) String() string {
	if l.unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", l.n)
}

// MarshalJSON encodes unlimited as -1.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unlimited {
		return []byte("-1"), nil
	}
	return json.Marshal(l.n)
}

// UnmarshalJSON decodes -1 (or any negative value) as unlimited.
func (l *Limit) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n < 0 {
		*l = Unlimited()
	} else {
		*l = Limited(n)
	}
	return nil
}
