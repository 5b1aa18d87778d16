package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// DefaultCodeAlphabet excludes ambiguous glyphs (0/O, 1/I/L).
const DefaultCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// lockedSource makes a math/rand source safe for concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// Rand is the process-wide RNG for room codes and symbol assignment.
// It is guarded internally; all packages share this one instance.
var Rand = rand.New(&lockedSource{src: rand.NewSource(cryptoSeed()).(rand.Source64)})

func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// crypto/rand failing is unrecoverable for a network service
		panic(err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// GenerateCode uniformly samples n characters from the alphabet.
// Uniqueness against existing rooms is the caller's concern; on a
// collision the caller simply generates again.
func GenerateCode(alphabet string, n int) string {
	code := make([]byte, n)
	for i := range code {
		code[i] = alphabet[Rand.Intn(len(alphabet))]
	}
	return string(code)
}

// NewPlayerID creates a 32-hex-char player identifier.
func NewPlayerID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// NewCorrelationID creates a 32-hex-char correlation id for one RPC.
func NewCorrelationID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// ValidPlayerID reports whether s parses as a 128-bit UUID, either
// 32-hex compact or canonical form.
func ValidPlayerID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
