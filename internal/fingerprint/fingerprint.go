// Package fingerprint derives exact and approximate content keys from question text.
//
// Three keys are produced from the normalized text:
//   - an SHA-1 hex digest used as the exact-duplicate key,
//   - a 64-bit SimHash over 3-rune shingles, rendered as 16 lowercase hex characters,
//   - an LSH bucket, the top N bits of the SimHash in hex, used to bound near-duplicate scans.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"strconv"

	"github.com/gokatarajesh/quiz-delivery/internal/textnorm"
)

const (
	// DefaultPrefixBits is the LSH bucket width used when none is configured.
	DefaultPrefixBits = 12
	MinPrefixBits     = 4
	MaxPrefixBits     = 32

	shingleSize = 3

	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// ErrMalformedSignature is returned when a stored SimHash cannot be parsed.
var ErrMalformedSignature = errors.New("malformed simhash signature")

// Signature is a 64-bit SimHash value.
type Signature uint64

// String renders the signature as 16 lowercase hex characters.
func (s Signature) String() string {
	return fmt.Sprintf("%016x", uint64(s))
}

// Fingerprints groups the keys persisted alongside a question.
type Fingerprints struct {
	SHA1Canonical string `json:"sha1_canonical"`
	SimHash64     string `json:"simhash64"`
	LSHBucket     string `json:"lsh_bucket"`
}

// Generator computes fingerprints with a fixed bucket width.
type Generator struct {
	prefixBits int
}

// NewGenerator clamps prefixBits into [MinPrefixBits, MaxPrefixBits].
func NewGenerator(prefixBits int) *Generator {
	return &Generator{prefixBits: ClampPrefixBits(prefixBits)}
}

// PrefixBits reports the bucket width in bits.
func (g *Generator) PrefixBits() int {
	return g.prefixBits
}

// Compute normalizes text once and derives all three keys from it.
func (g *Generator) Compute(text string) Fingerprints {
	normalized := textnorm.Normalize(text)
	sig := simhashNormalized(normalized)
	return Fingerprints{
		SHA1Canonical: sha1Hex(normalized),
		SimHash64:     sig.String(),
		LSHBucket:     LSHBucket(sig, g.prefixBits),
	}
}

// SHA1Canonical returns the SHA-1 hex digest of the normalized text.
func SHA1Canonical(text string) string {
	return sha1Hex(textnorm.Normalize(text))
}

// SimHash64 returns the SimHash of the normalized text. Empty text yields a zero signature.
func SimHash64(text string) Signature {
	return simhashNormalized(textnorm.Normalize(text))
}

// LSHBucket returns the top prefixBits bits of sig as zero-padded hex of ceil(prefixBits/4) digits.
func LSHBucket(sig Signature, prefixBits int) string {
	prefixBits = ClampPrefixBits(prefixBits)
	top := uint64(sig) >> (64 - prefixBits)
	width := (prefixBits + 3) / 4
	return fmt.Sprintf("%0*x", width, top)
}

// ParseSignature parses a 16-char hex SimHash.
func ParseSignature(raw string) (Signature, error) {
	if len(raw) != 16 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedSignature, raw)
	}
	v, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedSignature, raw)
	}
	return Signature(v), nil
}

// Hamming returns the number of differing bits between two hex signatures.
func Hamming(a, b string) (int, error) {
	sa, err := ParseSignature(a)
	if err != nil {
		return 0, err
	}
	sb, err := ParseSignature(b)
	if err != nil {
		return 0, err
	}
	return Distance(sa, sb), nil
}

// Distance is the Hamming distance between two parsed signatures.
func Distance(a, b Signature) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// ClampPrefixBits keeps a bucket width inside the supported range.
func ClampPrefixBits(prefixBits int) int {
	if prefixBits <= 0 {
		return DefaultPrefixBits
	}
	if prefixBits < MinPrefixBits {
		return MinPrefixBits
	}
	if prefixBits > MaxPrefixBits {
		return MaxPrefixBits
	}
	return prefixBits
}

func sha1Hex(normalized string) string {
	sum := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func simhashNormalized(normalized string) Signature {
	if normalized == "" {
		return 0
	}

	padded := []rune(" " + normalized + " ")
	var weights [64]int
	for i := 0; i+shingleSize <= len(padded); i++ {
		h := hashShingle(padded[i : i+shingleSize])
		for bit := 0; bit < 64; bit++ {
			if h&(1<<bit) != 0 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	var result uint64
	for bit := 0; bit < 64; bit++ {
		if weights[bit] >= 0 {
			result |= 1 << bit
		}
	}
	return Signature(result)
}

// hashShingle is FNV-1a applied to code points rather than UTF-8 bytes.
func hashShingle(shingle []rune) uint64 {
	h := uint64(fnvOffset64)
	for _, r := range shingle {
		h ^= uint64(r)
		h *= fnvPrime64
	}
	return h
}
