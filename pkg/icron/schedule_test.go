package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	ref := time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 3 * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 16*time.Hour+30*time.Minute, info.TimeUntilNext)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("@every 6h"))
	assert.NoError(t, Validate("*/15 * * * *"))
	assert.Error(t, Validate("not a schedule"))
	assert.Error(t, Validate("0 0 3 * * *"))
}
