package shortener

import (
	"context"
	"math/bits"
)

const (
	// Base62 characters: 0-9, a-z, A-Z (case sensitive)
	base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// AddressLength is the length of every generated address
	AddressLength = 7

	minEncoded = uint64(56800235584)   // 62^6, smallest 7-character value
	maxEncoded = uint64(3521614606207) // 62^7-1, largest 7-character value
)

const (
	// rangeSize is the number of 7-character values
	rangeSize = maxEncoded - minEncoded + 1

	// halfBits splits a 42-bit block, the smallest power of two covering rangeSize
	halfBits = 21
	halfMask = uint64(1)<<halfBits - 1

	feistelRounds = 4
)

// CounterGenerator turns a monotonic counter into addresses that do not reveal their order.
// Distinct counters below 62^7-62^6 always yield distinct addresses.
type CounterGenerator struct {
	counterProvider CounterProvider
	keys            [feistelRounds]uint64
}

// NewCounterGenerator creates a counter-based generator
func NewCounterGenerator(counterProvider CounterProvider) *CounterGenerator {
	return &CounterGenerator{
		counterProvider: counterProvider,
		keys:            [feistelRounds]uint64{0x5DEECE66D, 0x9E3779B9, 0x7F4A7C15, 0x2545F491},
	}
}

// Generate returns the address for the next counter value
func (g *CounterGenerator) Generate(ctx context.Context) (string, error) {
	counter, err := g.counterProvider.NextCounter(ctx)
	if err != nil {
		return "", err
	}

	return g.encode(uint64(counter)), nil
}

// encode maps a counter value onto a 7-character base62 string
func (g *CounterGenerator) encode(counter uint64) string {
	return toBase62(g.permute(counter%rangeSize) + minEncoded)
}

// permute is a bijection on [0, rangeSize). The Feistel network permutes the
// 42-bit block and cycle walking re-applies it until the value lands in range.
func (g *CounterGenerator) permute(value uint64) uint64 {
	for {
		value = g.feistel(value)
		if value < rangeSize {
			return value
		}
	}
}

func (g *CounterGenerator) feistel(value uint64) uint64 {
	left := value >> halfBits
	right := value & halfMask
	for _, key := range g.keys {
		left, right = right, left^round(right, key)
	}
	return left<<halfBits | right
}

// round mixes one half with a key. It need not be invertible.
func round(half, key uint64) uint64 {
	x := (half ^ key) * 0x9E3779B97F4A7C15
	x = bits.RotateLeft64(x, 17) ^ x>>29
	return x & halfMask
}

// Type returns the generator type
func (g *CounterGenerator) Type() string {
	return TypeCounter
}

// Close performs cleanup
func (g *CounterGenerator) Close() error {
	if g.counterProvider != nil {
		return g.counterProvider.Close()
	}
	return nil
}

func toBase62(num uint64) string {
	if num == 0 {
		return "0"
	}

	var buf [11]byte
	i := len(buf)
	for num > 0 {
		i--
		buf[i] = base62Chars[num%62]
		num /= 62
	}
	return string(buf[i:])
}

// Ensure CounterGenerator implements Generator interface
var _ Generator = (*CounterGenerator)(nil)
