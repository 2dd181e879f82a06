package simulation

import gonanoid "github.com/matoous/go-nanoid"

const runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRunID returns a 12 character lowercase id.
func NewRunID() (string, error) {
	return gonanoid.Generate(runIDAlphabet, 12)
}
