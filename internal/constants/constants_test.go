package constants

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockConstants(t *testing.T) {
	t.Run("LockRetryInterval is reasonable", func(t *testing.T) {
		assert.Equal(t, 50*time.Millisecond, LockRetryInterval)
		assert.Less(t, LockRetryInterval, LockTimeout, "should retry several times before timing out")
	})

	t.Run("NotifyTimeout stays short", func(t *testing.T) {
		assert.LessOrEqual(t, NotifyTimeout, time.Second, "a nudge must never stall a mutation")
	})
}

func TestWorkspaceConstants(t *testing.T) {
	assert.Equal(t, "default", DefaultWorkspace)
	assert.Equal(t, ".db", DatasetExtension)
	assert.Equal(t, "workspace_config.json", ActiveRecordFileName)
}

func TestLayoutDefaults(t *testing.T) {
	assert.Equal(t, 240, DefaultBoardWidth)
	assert.Equal(t, 100, DefaultBoardHeight)
	assert.Equal(t, "vertical", DefaultChildLayout)
	assert.Equal(t, "compact", DefaultChildCommentDisplay)
}
