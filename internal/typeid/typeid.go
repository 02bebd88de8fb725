// Package typeid issues the prefixed, sortable ids used for pictograms,
// document nodes and collaboration operations.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixNode      = "node"
	PrefixPictogram = "pict"
	PrefixOp        = "op"
)

// ErrInvalidID is returned by Validate for ids that fail to parse or carry
// another prefix.
var ErrInvalidID = errors.New("invalid id")

func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewNodeID() string      { return New(PrefixNode) }
func NewPictogramID() string { return New(PrefixPictogram) }
func NewOpID() string        { return New(PrefixOp) }

// PrefixOf returns the prefix of a well-formed id.
func PrefixOf(id string) (string, bool) {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return "", false
	}
	return parsed.Prefix(), true
}

func Validate(id, want string) error {
	prefix, ok := PrefixOf(id)
	if !ok {
		return fmt.Errorf("%w: %q is not a typeid", ErrInvalidID, id)
	}
	if prefix != want {
		return fmt.Errorf("%w: expected prefix %q but got %q in id %q", ErrInvalidID, want, prefix, id)
	}
	return nil
}
