package services

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubLookup(handle *string, err error) handleLookup {
	return func(_ *Store, _, _ string) (*string, error) {
		return handle, err
	}
}

func strptr(s string) *string { return &s }

func TestFirstHandle_EarlierSourceWins(t *testing.T) {
	chain := []handleLookup{
		stubLookup(strptr("primary"), nil),
		stubLookup(strptr("fallback"), nil),
	}

	handle, err := firstHandle(nil, "u1", "e1", chain)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, "primary", *handle)
}

func TestFirstHandle_SkipsEmptySources(t *testing.T) {
	chain := []handleLookup{
		stubLookup(nil, nil),
		stubLookup(strptr("   "), nil), // whitespace counts as absent
		stubLookup(strptr("fallback"), nil),
	}

	handle, err := firstHandle(nil, "u1", "e1", chain)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, "fallback", *handle)
}

func TestFirstHandle_NoSourceHasOne(t *testing.T) {
	chain := []handleLookup{
		stubLookup(nil, nil),
		stubLookup(nil, nil),
	}

	handle, err := firstHandle(nil, "u1", "e1", chain)
	require.NoError(t, err)
	assert.Nil(t, handle)
}

func TestFirstHandle_LookupErrorStopsTheChain(t *testing.T) {
	chain := []handleLookup{
		stubLookup(nil, fmt.Errorf("db down")),
		stubLookup(strptr("fallback"), nil),
	}

	handle, err := firstHandle(nil, "u1", "e1", chain)
	assert.Error(t, err)
	assert.Nil(t, handle)
}

func TestHandleLookupChain_RegistrationBeforeLinkTable(t *testing.T) {
	// the chain's order is load-bearing: the registration row's own column
	// must shadow the mirrored link table
	require.Len(t, handleLookupChain, 2)
	assert.Equal(t,
		reflect.ValueOf(lookupRegistrationHandle).Pointer(),
		reflect.ValueOf(handleLookupChain[0]).Pointer())
	assert.Equal(t,
		reflect.ValueOf(lookupLinkedHandle).Pointer(),
		reflect.ValueOf(handleLookupChain[1]).Pointer())
}
