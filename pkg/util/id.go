// Package util contains any functions used across the application that don't match
// any other package
package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID returns a random identifier of n characters. It's used for user,
// listing, session and storage keys.
func NewID(n int) (string, error) {
	return gonanoid.Generate(charset, n)
}

// MustID is NewID for places where a failing random source can't be
// handled anyway, like request IDs.
func MustID(n int) string {
	return gonanoid.MustGenerate(charset, n)
}
