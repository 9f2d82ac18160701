package repository

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	DefaultCodeLength         = 8
	DefaultCodeFilterCapacity = 1_000_000

	codeAlphabet      = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeFilterFPRate  = 1e-6
	maxCodeAttempts   = 16
	unbiasedByteLimit = 256 - 256%len(codeAlphabet)
)

// CodeGenerator mints random base62 short codes and remembers every code it has
// issued, so a code freed by deletion or expiry is not handed out again.
// It is not safe for concurrent use; MemoryStore calls it under its write lock.
type CodeGenerator struct {
	length int
	issued *bloom.BloomFilter
	source io.Reader
}

// NewCodeGenerator returns a generator producing codes of the given length.
func NewCodeGenerator(length int, capacity uint) *CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if capacity == 0 {
		capacity = DefaultCodeFilterCapacity
	}
	return &CodeGenerator{
		length: length,
		issued: bloom.NewWithEstimates(capacity, codeFilterFPRate),
		source: rand.Reader,
	}
}

// Next returns a code for which taken reports false. Codes the filter may have
// issued before are skipped, except on the final attempt where only taken decides.
func (g *CodeGenerator) Next(taken func(code string) bool) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := g.random()
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		if taken(code) {
			continue
		}
		if g.issued.TestString(code) && attempt < maxCodeAttempts-1 {
			continue
		}
		g.issued.AddString(code)
		return code, nil
	}
	return "", ErrCodeExhausted
}

func (g *CodeGenerator) random() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)
	for len(out) < g.length {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// Reject the tail of the byte range so every symbol is equally likely.
			if int(b) >= unbiasedByteLimit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}
