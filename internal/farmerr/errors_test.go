package farmerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "with cause",
			err:  Wrap(KindTransport, "sensor", "request failed", errors.New("connection refused")),
			want: "[transport:sensor] request failed: connection refused",
		},
		{
			name: "without cause",
			err:  New(KindUserInputMissing, "analyze", "no image selected"),
			want: "[input:analyze] no image selected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("Should return nil for a nil error", func(t *testing.T) {
		assert.NoError(t, Wrap(KindTransport, "op", "msg", nil))
	})

	t.Run("Should keep the original cause reachable", func(t *testing.T) {
		cause := errors.New("boom")
		err := Wrap(KindTransport, "op", "msg", cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should not re-wrap an already typed error", func(t *testing.T) {
		inner := New(KindServerRejected, "predict", "unsupported file")
		err := Wrap(KindTransport, "submit", "request failed", fmt.Errorf("ctx: %w", inner))
		assert.Equal(t, KindServerRejected, KindOf(err))
	})
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{"direct match", New(KindMalformedResponse, "t", "m"), KindMalformedResponse, true},
		{"mismatch", New(KindMalformedResponse, "t", "m"), KindTransport, false},
		{"wrapped with fmt", fmt.Errorf("outer: %w", New(KindTransport, "t", "m")), KindTransport, true},
		{"plain error", errors.New("plain"), KindTransport, false},
		{"nil", nil, KindTransport, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsKind(tt.err, tt.kind))
		})
	}
}

func TestUserMessage(t *testing.T) {
	t.Run("Should prefer the server message on rejection", func(t *testing.T) {
		err := New(KindServerRejected, "predict", "unsupported file type")
		assert.Equal(t, "unsupported file type", UserMessage(err, "analysis failed"))
	})

	t.Run("Should fall back when the server gave no message", func(t *testing.T) {
		err := New(KindServerRejected, "predict", "")
		assert.Equal(t, "analysis failed", UserMessage(err, "analysis failed"))
	})

	t.Run("Should hide transport details", func(t *testing.T) {
		err := Wrap(KindTransport, "predict", "request failed", errors.New("dial tcp: refused"))
		assert.Equal(t, "analysis failed", UserMessage(err, "analysis failed"))
	})

	t.Run("Should hide malformed response details", func(t *testing.T) {
		err := New(KindMalformedResponse, "predict", "missing disease_code")
		assert.Equal(t, "analysis failed", UserMessage(err, "analysis failed"))
	})

	t.Run("Should surface input messages", func(t *testing.T) {
		err := New(KindUserInputMissing, "analyze", "choose an image first")
		require.Error(t, err)
		assert.Equal(t, "choose an image first", UserMessage(err, "analysis failed"))
	})

	t.Run("Should return empty text for nil", func(t *testing.T) {
		assert.Empty(t, UserMessage(nil, "analysis failed"))
	})
}
