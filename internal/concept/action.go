package concept

import (
	"fmt"
	"strings"
)

// ActionKind selects the response an interaction produces when a concept
// matches. It is resolved once when the concept is authored.
type ActionKind int

const (
	ActionDefault ActionKind = iota
	ActionCuriosity
	ActionAesthetics
	ActionVerification
)

var actionNames = map[ActionKind]string{
	ActionDefault:      "default",
	ActionCuriosity:    "curiosity",
	ActionAesthetics:   "aesthetics",
	ActionVerification: "verification",
}

// String returns the config name of the action kind.
func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseActionKind resolves a config name. The empty string maps to
// ActionDefault.
func ParseActionKind(s string) (ActionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ActionDefault, nil
	}
	for kind, name := range actionNames {
		if name == s {
			return kind, nil
		}
	}
	return ActionDefault, fmt.Errorf("unknown action kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActionKind) UnmarshalText(text []byte) error {
	kind, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
