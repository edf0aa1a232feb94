// Package id generates short unique identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// suffixLength is the length of short collision suffixes. 8 URL-safe
// characters is plenty for directory-name dedup within one library.
const suffixLength = 8

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "upload-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Suffix returns a short random string for deduplicating names, e.g.
// turning an already-taken document directory "dune" into "dune-x7Kp2mQa".
func Suffix() (string, error) {
	s, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", suffixLength)
	if err != nil {
		return "", fmt.Errorf("generate suffix: %w", err)
	}
	return s, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use only where failure should crash the program (e.g., during initialization).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
