package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNoticeBuffer_Limit(t *testing.T) {
	b := newNoticeBuffer(2)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, msg := range []string{"a", "b", "c"} {
		b.add(Notice{At: at, Source: "list", Message: msg})
	}

	got := b.list(false)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].Message)
	require.Equal(t, "c", got[1].Message)
}

func TestNoticeBuffer_Drain(t *testing.T) {
	b := newNoticeBuffer(0)
	b.add(Notice{Source: "sign_in", Message: "nope"})

	require.Len(t, b.list(true), 1)
	require.Empty(t, b.list(false))
}
