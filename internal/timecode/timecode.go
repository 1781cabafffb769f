// Package timecode decodes the compact days+shift+slots notation used for
// section schedules ("24T12" is Monday and Wednesday, afternoon, slots 1
// and 2) into discrete tokens and wall-clock meetings.
package timecode

import (
	"regexp"
	"strings"
	"time"
)

// Shift is the part of the day a slot belongs to.
type Shift byte

const (
	Morning   Shift = 'M'
	Afternoon Shift = 'T'
	Night     Shift = 'N'
)

func (s Shift) String() string {
	switch s {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	case Night:
		return "night"
	default:
		return "unknown"
	}
}

// Token is one (day, shift, slot) unit such as "2M1". Tokens that failed
// to decode carry the raw code instead and only compare equal to the same
// raw code.
type Token string

var codePattern = regexp.MustCompile(`^([2-7]+)([MTN]+)([1-9]+)$`)

// Expand returns the cartesian product days x shifts x slots of code.
// Input that does not follow the grammar comes back unchanged as a single
// opaque token.
func Expand(code string) []Token {
	m := codePattern.FindStringSubmatch(strings.TrimSpace(code))
	if m == nil {
		return []Token{Token(code)}
	}
	days, shifts, slots := m[1], m[2], m[3]

	tokens := make([]Token, 0, len(days)*len(shifts)*len(slots))
	for i := 0; i < len(days); i++ {
		for j := 0; j < len(shifts); j++ {
			for k := 0; k < len(slots); k++ {
				tokens = append(tokens, Token([]byte{days[i], shifts[j], slots[k]}))
			}
		}
	}
	return tokens
}

// ExpandAll expands every code and concatenates the results.
func ExpandAll(codes []string) []Token {
	var tokens []Token
	for _, c := range codes {
		tokens = append(tokens, Expand(c)...)
	}
	return tokens
}

// Fields splits a raw schedule string into its individual time codes.
func Fields(raw string) []string {
	return strings.Fields(raw)
}

// Parts decodes a well-formed token. ok is false for opaque tokens.
func (t Token) Parts() (day int, shift Shift, slot int, ok bool) {
	if len(t) != 3 {
		return 0, 0, 0, false
	}
	d, s, n := t[0], Shift(t[1]), t[2]
	if d < '2' || d > '7' || n < '1' || n > '9' {
		return 0, 0, 0, false
	}
	if s != Morning && s != Afternoon && s != Night {
		return 0, 0, 0, false
	}
	return int(d - '0'), s, int(n - '0'), true
}

// Valid reports whether t decodes to a (day, shift, slot) triple.
func (t Token) Valid() bool {
	_, _, _, ok := t.Parts()
	return ok
}

// Weekday maps a day digit to a weekday, 2 being Monday.
func Weekday(day int) time.Weekday {
	return time.Weekday((day - 1) % 7)
}
