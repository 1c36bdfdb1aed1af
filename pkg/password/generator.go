package password

import (
	crand "crypto/rand"
	"errors"
	"math/rand/v2"
	"slices"
)

// Character classes. Uppercase I and lowercase l are left out; O, 0 and 1 are kept.
const (
	UppercaseAlphabet = "ABCDEFGHJKLMNOPQRSTUVWXYZ"
	LowercaseAlphabet = "abcdefghijkmnopqrstuvwxyz"
	DigitAlphabet     = "0123456789"
	SymbolAlphabet    = "!@$?_-"
)

// MaxExtraDraws bounds the free draws made on top of the minimum length.
const MaxExtraDraws = 10000

var ErrPolicyUnsatisfiable = errors.New("password policy cannot be satisfied")

var alphabets = [...]string{UppercaseAlphabet, LowercaseAlphabet, DigitAlphabet, SymbolAlphabet}

// distinctAvailable is the number of distinct characters across all alphabets.
var distinctAvailable = func() int {
	seen := make(map[rune]struct{})
	for _, a := range alphabets {
		for _, r := range a {
			seen[r] = struct{}{}
		}
	}
	return len(seen)
}()

// Source is the randomness a generation draws from. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// NewSource returns a ChaCha8 source seeded from crypto/rand.
func NewSource() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("password: unable to seed random source: " + err.Error())
	}
	return rand.New(rand.NewChaCha8(seed))
}

// Generate builds a password satisfying policy. Required classes are placed first,
// then characters from any class are added until both the length and the distinct
// character thresholds are met. Every character lands at a random position.
func Generate(policy *Policy, src Source) (string, error) {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if policy.MinimumUniqueCharacters > distinctAvailable {
		return "", ErrPolicyUnsatisfiable
	}

	chars := make([]byte, 0, max(policy.MinimumLength, 4))
	distinct := make(map[byte]struct{})
	insert := func(alphabet string) {
		c := alphabet[src.IntN(len(alphabet))]
		chars = slices.Insert(chars, src.IntN(len(chars)+1), c)
		distinct[c] = struct{}{}
	}

	required := [...]bool{policy.RequireUppercase, policy.RequireLowercase, policy.RequireDigit, policy.RequireSymbol}
	for i, req := range required {
		if req {
			insert(alphabets[i])
		}
	}

	limit := max(policy.MinimumLength, 0) + MaxExtraDraws
	for draws := 0; len(chars) < policy.MinimumLength || len(distinct) < policy.MinimumUniqueCharacters; draws++ {
		if draws >= limit {
			return "", ErrPolicyUnsatisfiable
		}
		insert(alphabets[src.IntN(len(alphabets))])
	}

	return string(chars), nil
}

// Generator produces passwords for a fixed default policy with a fresh source per call.
type Generator struct {
	policy    Policy
	newSource func() Source
}

// NewGenerator creates a generator. A nil policy falls back to DefaultPolicy and a nil
// factory to NewSource.
func NewGenerator(policy *Policy, newSource func() Source) *Generator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if newSource == nil {
		newSource = func() Source { return NewSource() }
	}
	return &Generator{policy: *policy, newSource: newSource}
}

// Generate uses policy when given, otherwise the generator's own policy.
func (g *Generator) Generate(policy *Policy) (string, error) {
	if policy == nil {
		policy = &g.policy
	}
	return Generate(policy, g.newSource())
}
