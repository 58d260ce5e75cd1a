package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFail_ClassifiesAndKeepsHint(t *testing.T) {
	err := WithHint(fmt.Errorf("github returned 401: %w", ErrAuth), "Reconnect GitHub in settings")
	r := Fail(err)

	assert.False(t, r.Success)
	assert.Equal(t, ErrorKindAuth, r.Kind)
	assert.Equal(t, "Reconnect GitHub in settings", r.Hint)
	assert.Contains(t, r.Error, "401")
}

func TestResult_ErrRoundTripsKind(t *testing.T) {
	r := Fail(fmt.Errorf("slack: %w", ErrUpstreamRateLimit))
	err := r.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstreamRateLimit))

	assert.NoError(t, OK(nil).Err())
}

func TestResult_ToolContent(t *testing.T) {
	t.Run("success payload", func(t *testing.T) {
		content := OK(map[string]int{"count": 42}).ToolContent()
		var got map[string]int
		require.NoError(t, json.Unmarshal([]byte(content), &got))
		assert.Equal(t, 42, got["count"])
	})

	t.Run("error carries error field", func(t *testing.T) {
		content := Fail(errors.New("connection refused")).ToolContent()
		var got map[string]string
		require.NoError(t, json.Unmarshal([]byte(content), &got))
		assert.Equal(t, "connection refused", got["error"])
	})

	t.Run("empty success", func(t *testing.T) {
		assert.JSONEq(t, `{"success":true}`, OK(nil).ToolContent())
	})
}
