package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesPrefix(t *testing.T) {
	id := NewNodeID()
	assert.True(t, strings.HasPrefix(id, "node_"), id)
	require.NoError(t, Validate(id, PrefixNode))
	assert.NotEqual(t, id, NewNodeID())

	prefix, ok := PrefixOf(NewOpID())
	require.True(t, ok)
	assert.Equal(t, PrefixOp, prefix)
}

func TestValidateRejectsWrongPrefix(t *testing.T) {
	err := Validate(NewPictogramID(), PrefixOp)
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorContains(t, err, "expected prefix")

	err = Validate("not-an-id", PrefixOp)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, ok := PrefixOf("not-an-id")
	assert.False(t, ok)
}
