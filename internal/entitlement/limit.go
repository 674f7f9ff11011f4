package entitlement

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const unboundedLiteral = "unbounded"

// Window is a recurring counting period for a usage limit.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowMonthly Window = "monthly"
	// WindowNone never rolls over
	WindowNone Window = "none"
)

// ParseWindow validates a window name.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case WindowDaily, WindowMonthly, WindowNone:
		return w, nil
	default:
		return "", fmt.Errorf("unknown window %q", s)
	}
}

// LimitKey is the flat entitlement key for a feature and window,
// e.g. doutor_ia_daily.
func LimitKey(feature string, window Window) string {
	if window == WindowNone {
		return feature + "_total"
	}
	return feature + "_" + string(window)
}

// Limit is either a non-negative count or unbounded. The zero value is a
// bounded limit of 0.
type Limit struct {
	value     int
	unbounded bool
}

// Bounded returns a limit of n uses. Negative n is clamped to 0.
func Bounded(n int) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{value: n}
}

// Unbounded returns the limit that is never reached.
func Unbounded() Limit {
	return Limit{unbounded: true}
}

func (l Limit) IsUnbounded() bool { return l.unbounded }

// Value returns the bounded count. It is meaningless for unbounded limits.
func (l Limit) Value() int { return l.value }

// Allows reports whether one more use fits under the limit given count uses.
func (l Limit) Allows(count int) bool {
	return l.unbounded || count < l.value
}

// Sub returns max(0, l - count), or unbounded.
func (l Limit) Sub(count int) Limit {
	if l.unbounded {
		return l
	}
	return Bounded(l.value - count)
}

func (l Limit) String() string {
	if l.unbounded {
		return unboundedLiteral
	}
	return strconv.Itoa(l.value)
}

// MarshalJSON encodes a bounded limit as a number and unbounded as the
// string "unbounded".
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unbounded {
		return json.Marshal(unboundedLiteral)
	}
	return json.Marshal(l.value)
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return l.parse(s)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("limit must be an integer or %q: %w", unboundedLiteral, err)
	}
	if n < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", n)
	}
	*l = Bounded(n)
	return nil
}

// UnmarshalYAML accepts an integer scalar or "unbounded".
func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: limit must be a scalar", node.Line)
	}
	if err := l.parse(node.Value); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

func (l *Limit) parse(s string) error {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, unboundedLiteral) {
		*l = Unbounded()
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("limit must be an integer or %q, got %q", unboundedLiteral, s)
	}
	if n < 0 {
		return fmt.Errorf("limit must be non-negative, got %d", n)
	}
	*l = Bounded(n)
	return nil
}
