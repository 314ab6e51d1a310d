package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationServiceNewestFirstAndBounded(t *testing.T) {
	svc := NewNotificationService(nil)
	svc.now = fixedClock

	for i := 0; i < notificationCapacity+5; i++ {
		svc.Success("Document updated", fmt.Sprintf("update %d", i), i%2 == 0)
	}
	svc.Error("Failed to renew document", "authority unavailable", false)

	items := svc.List()
	require.Len(t, items, notificationCapacity)
	assert.Equal(t, NotificationError, items[0].Level)
	assert.Equal(t, "update 54", items[1].Message)
	assert.Equal(t, fixedNow, items[0].CreatedAt)
	assert.NotEmpty(t, items[0].ID)
}
