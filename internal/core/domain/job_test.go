package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobState_Terminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobSucceeded.Terminal())
	assert.True(t, JobPartialFailure.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.False(t, JobState("bogus").Terminal())
}
