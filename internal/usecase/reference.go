package usecase

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

const referenceSuffixBytes = 3

// ReferenceGenerator builds request references of the form
// PREFIX-YYMMDD-XXXXXX, where XXXXXX is random uppercase hex.
type ReferenceGenerator struct {
	prefix string
	now    func() time.Time
	random io.Reader
}

func NewReferenceGenerator(prefix string) *ReferenceGenerator {
	return &ReferenceGenerator{
		prefix: prefix,
		now:    time.Now,
		random: rand.Reader,
	}
}

func (g *ReferenceGenerator) Generate() (string, error) {
	buf := make([]byte, referenceSuffixBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	return fmt.Sprintf("%s-%s-%X", g.prefix, g.now().UTC().Format("060102"), buf), nil
}
