package invoice

import (
	"fmt"
	"strings"
)

// DefaultNumberPrefix is the required prefix of every invoice number
const DefaultNumberPrefix = "INV2025"

// Numbering issues sequential invoice numbers of the form PREFIX + %03d
type Numbering struct {
	prefix string
}

// NewNumbering creates a Numbering; an empty prefix falls back to the default
func NewNumbering(prefix string) Numbering {
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	return Numbering{prefix: prefix}
}

// Prefix returns the configured number prefix
func (n Numbering) Prefix() string {
	return n.prefix
}

// Next returns the number following the given counter value and the new
// counter value to store once that number has been used
func (n Numbering) Next(current int) (string, int) {
	if current < 0 {
		current = 0
	}
	seq := current + 1
	return n.Format(seq), seq
}

// Format renders the number for a sequence value
func (n Numbering) Format(seq int) string {
	return fmt.Sprintf("%s%03d", n.prefix, seq)
}

// Valid reports whether a number carries the required prefix
func (n Numbering) Valid(number string) bool {
	return strings.HasPrefix(number, n.prefix)
}
