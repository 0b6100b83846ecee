package identity

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// suffixAlphabet omits I, O, 0 and 1 so codes survive being read aloud.
const suffixAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Provider is the single source of identifier non-determinism.
type Provider interface {
	// NewID returns a process-unique ticket identifier.
	NewID() string
	// Suffix returns n random characters for human-facing ticket codes.
	Suffix(n int) string
	// Sequence returns a token that strictly increases between calls.
	Sequence() string
}

// Generator is the production Provider.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator builds a Generator whose sequence tokens are namespaced by node.
func NewGenerator(node int64) (*Generator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", node, err)
	}
	return &Generator{node: n}, nil
}

// NewID returns a random UUID.
func (g *Generator) NewID() string {
	return uuid.NewString()
}

// Suffix draws n characters from the code alphabet.
func (g *Generator) Suffix(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(suffixAlphabet[rand.IntN(len(suffixAlphabet))])
	}
	return b.String()
}

// Sequence returns the next snowflake id in upper-case base36.
func (g *Generator) Sequence() string {
	return strings.ToUpper(g.node.Generate().Base36())
}
