package purchase

import (
	nanoid "github.com/jaevor/go-nanoid"
)

// referenceAlphabet leaves out characters that are easy to misread.
const referenceAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// ReferenceLength is the length of purchase reference codes.
const ReferenceLength = 10

// NewReferenceGenerator returns a generator of short human-readable purchase
// references.
func NewReferenceGenerator() (func() string, error) {
	return nanoid.CustomASCII(referenceAlphabet, ReferenceLength)
}
