package tasks

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// IDGenerator produces unique task ids. It prefers the kernel's native UUID
// source and falls back to an RFC 4122 v4 UUID from crypto/rand; the
// sequential mode exists for deterministic tests.
type IDGenerator struct {
	counter    int64
	sequential bool
}

// NewIDGenerator builds a UUID-backed generator.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// NewSequentialIDGenerator builds a counter-backed generator for tests.
func NewSequentialIDGenerator() *IDGenerator {
	return &IDGenerator{sequential: true}
}

// Next returns a fresh task id.
func (g *IDGenerator) Next() string {
	if g.sequential {
		return fmt.Sprintf("task-%d", atomic.AddInt64(&g.counter, 1))
	}
	if id, err := readKernelUUID(); err == nil {
		return id
	}
	return randomUUID()
}

func readKernelUUID() (string, error) {
	file, err := os.Open("/proc/sys/kernel/random/uuid")
	if err != nil {
		return "", err
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(string(raw))
	if len(id) != 36 {
		return "", fmt.Errorf("invalid UUID length %d", len(id))
	}
	return id, nil
}

func randomUUID() string {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(fmt.Sprintf("random source unavailable: %v", err))
	}
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
