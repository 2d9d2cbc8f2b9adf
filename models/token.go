package models

import (
	"regexp"
	"strconv"
	"strings"
)

// TokenKind tags what a menu selection refers to.
type TokenKind string

const (
	KindActivity TokenKind = "activity"
	KindLocation TokenKind = "location"
	KindDate     TokenKind = "dt"
	KindPeriod   TokenKind = "period"
	KindSlot     TokenKind = "sl"
	KindAddSlot  TokenKind = "addslot"
	KindAddon    TokenKind = "addon"
	KindConfirm  TokenKind = "confirm"
	KindMenu     TokenKind = "menu"
)

var knownKinds = map[TokenKind]bool{
	KindActivity: true,
	KindLocation: true,
	KindDate:     true,
	KindPeriod:   true,
	KindSlot:     true,
	KindAddSlot:  true,
	KindAddon:    true,
	KindConfirm:  true,
	KindMenu:     true,
}

// MenuToken is the semantic id attached to a button or list row when a menu
// is rendered; the router dispatches on it instead of on raw text.
type MenuToken struct {
	Kind  TokenKind
	Value string
}

func NewToken(kind TokenKind, value string) MenuToken {
	return MenuToken{Kind: kind, Value: value}
}

// ID is the wire form, "<kind>_<value>".
func (t MenuToken) ID() string {
	return string(t.Kind) + "_" + t.Value
}

// ParseMenuToken parses the wire form produced by ID.
func ParseMenuToken(s string) (MenuToken, bool) {
	kind, value, ok := strings.Cut(strings.TrimSpace(s), "_")
	if !ok || value == "" {
		return MenuToken{}, false
	}
	k := TokenKind(strings.ToLower(kind))
	if !knownKinds[k] {
		return MenuToken{}, false
	}
	return MenuToken{Kind: k, Value: value}, true
}

var coordinatePattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

// ParseCoordinate parses the "section-row" form some channel adapters send
// instead of the row id.
func ParseCoordinate(s string) (section, row int, ok bool) {
	m := coordinatePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	section, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	row, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return section, row, true
}

// LooksLikeSelection reports whether s has the shape of a menu selection,
// so free-text steps must not consume it.
func LooksLikeSelection(s string) bool {
	if _, ok := ParseMenuToken(s); ok {
		return true
	}
	_, _, ok := ParseCoordinate(s)
	return ok
}
