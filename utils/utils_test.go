package utils

import (
	"errors"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestHashKey(t *testing.T) {
	require.Equal(t, HashKey("qwen3:8b", "fever"), HashKey("qwen3:8b", "fever"))
	require.NotEqual(t, HashKey("ab", "c"), HashKey("a", "bc"))
	require.Len(t, HashKey("x"), 16)
}

func TestRecoverWithError(t *testing.T) {
	run := func(fail bool) (err error) {
		defer RecoverWithError(&err)
		if fail {
			panic("boom")
		}
		return errors.New("regular")
	}
	require.EqualError(t, run(true), "got panic: boom")
	require.EqualError(t, run(false), "regular")
}
