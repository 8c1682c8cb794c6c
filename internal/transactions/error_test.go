package transactions

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("ingest: %w", NewError(ErrTreeFull, "append commitment", cause))

	require.True(t, IsError(err, ErrTreeFull))
	require.False(t, IsError(err, ErrDecode))
	require.False(t, IsError(cause, ErrTreeFull))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "ingest: append commitment: boom", err.Error())
	require.Equal(t, "append commitment", NewError(ErrTreeFull, "append commitment", nil).Error())

	require.Equal(t, "ErrInsufficientBalance", ErrInsufficientBalance.String())
	require.Equal(t, "Unknown ErrorCode (99)", ErrorCode(99).String())
}
