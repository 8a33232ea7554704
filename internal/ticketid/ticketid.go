// Package ticketid generates the short identifiers attached to form
// submissions and printed as QR codes on visitor tickets.
package ticketid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

const (
	// Length is the number of characters in every ticket ID.
	Length = 8

	base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	hexAlphabet    = "0123456789ABCDEF"

	// Bytes at or above this value are rejected so that every base36
	// character is equally likely (252 = 7 * 36).
	maxUnbiasedByte = 252

	// Upper bound on refills while rejection sampling. A healthy source
	// needs one refill about once in 30 calls.
	maxRefills = 64
)

// ErrRandomnessUnavailable is returned when the randomness source fails or
// cannot supply enough usable bytes.
var ErrRandomnessUnavailable = errors.New("randomness unavailable")

// Scheme selects the alphabet and construction of generated IDs.
type Scheme int

const (
	// SchemeBase36 draws every character uniformly from [0-9A-Z].
	SchemeBase36 Scheme = iota
	// SchemeHex reproduces the legacy format: the uppercased hex prefix of
	// a digest over time and random bytes, alphabet [0-9A-F].
	SchemeHex
)

func (s Scheme) String() string {
	switch s {
	case SchemeBase36:
		return "base36"
	case SchemeHex:
		return "hex"
	default:
		return fmt.Sprintf("scheme(%d)", int(s))
	}
}

// Alphabet returns the characters an ID of this scheme may contain.
func (s Scheme) Alphabet() string {
	if s == SchemeHex {
		return hexAlphabet
	}
	return base36Alphabet
}

// ParseScheme maps a config or flag value to a Scheme. Empty means base36.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "base36":
		return SchemeBase36, nil
	case "hex":
		return SchemeHex, nil
	default:
		return 0, fmt.Errorf("unknown ticket id scheme %q (want base36 or hex)", name)
	}
}

// Generator produces ticket IDs. It keeps no state between calls beyond
// what its source holds, so a Generator is safe for concurrent use as long
// as its source is.
type Generator struct {
	source io.Reader
	now    func() time.Time
	scheme Scheme
}

// Option configures a Generator built by New.
type Option func(*Generator)

// WithSource replaces crypto/rand as the randomness source.
func WithSource(r io.Reader) Option {
	return func(g *Generator) {
		g.source = r
	}
}

// WithClock replaces time.Now. Only SchemeHex reads the clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithScheme picks the ID scheme. The default is SchemeBase36.
func WithScheme(s Scheme) Option {
	return func(g *Generator) {
		g.scheme = s
	}
}

// New returns a Generator reading crypto/rand and time.Now.
func New(opts ...Option) *Generator {
	g := &Generator{
		source: rand.Reader,
		now:    time.Now,
		scheme: SchemeBase36,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Scheme reports the scheme this Generator produces.
func (g *Generator) Scheme() Scheme {
	return g.scheme
}

// Generate returns a new ticket ID of Length characters.
func (g *Generator) Generate() (string, error) {
	switch g.scheme {
	case SchemeBase36:
		return g.base36()
	case SchemeHex:
		return g.digestHex()
	default:
		return "", fmt.Errorf("unsupported ticket id scheme %s", g.scheme)
	}
}

func (g *Generator) base36() (string, error) {
	out := make([]byte, 0, Length)
	buf := make([]byte, Length+Length/2)
	for refill := 0; refill < maxRefills; refill++ {
		if err := g.read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= maxUnbiasedByte {
				continue
			}
			out = append(out, base36Alphabet[int(b)%len(base36Alphabet)])
			if len(out) == Length {
				return string(out), nil
			}
		}
	}
	return "", fmt.Errorf("%w: source produced no usable bytes after %d reads", ErrRandomnessUnavailable, maxRefills)
}

func (g *Generator) digestHex() (string, error) {
	var seed [16]byte
	binary.BigEndian.PutUint64(seed[:8], uint64(g.now().UnixNano()))
	if err := g.read(seed[8:]); err != nil {
		return "", err
	}
	sum := blake3.Sum256(seed[:])
	return strings.ToUpper(hex.EncodeToString(sum[:Length/2])), nil
}

func (g *Generator) read(buf []byte) error {
	if g.source == nil {
		return fmt.Errorf("%w: no source configured", ErrRandomnessUnavailable)
	}
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}
	return nil
}

var defaultGenerator = New()

// Generate returns a base36 ticket ID from crypto/rand.
func Generate() (string, error) {
	return defaultGenerator.Generate()
}

// Valid reports whether id has the exact length and alphabet of scheme.
func Valid(id string, scheme Scheme) bool {
	if len(id) != Length {
		return false
	}
	alphabet := scheme.Alphabet()
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return false
		}
	}
	return true
}

// Normalize trims surrounding whitespace and uppercases an ID as typed by a
// person or decoded from a scan.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
