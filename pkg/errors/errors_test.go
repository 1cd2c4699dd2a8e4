package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOfWalksWrappedChain(t *testing.T) {
	inner := Wrap(CodeRemote, "reward out of stock", nil)
	outer := fmt.Errorf("redeem: %w", inner)

	require.True(t, IsCode(outer, CodeRemote))
	require.False(t, IsCode(outer, CodeNetwork))
	require.Equal(t, "reward out of stock", MessageOf(outer))
}

func TestMessageOfForeignError(t *testing.T) {
	require.Equal(t, "boom", MessageOf(errors.New("boom")))
	require.Equal(t, "", MessageOf(nil))
	require.Equal(t, "", CodeOf(errors.New("boom")))
}

func TestAppErrorIncludesCause(t *testing.T) {
	err := Wrap(CodeNetwork, "backend unreachable", errors.New("dial tcp: refused"))
	require.Equal(t, "backend unreachable: dial tcp: refused", err.Error())
	require.ErrorContains(t, errors.Unwrap(err), "refused")
}
