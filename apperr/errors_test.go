package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	fmt.Println("\nSTART UNIT TEST 'apperr'")
	m.Run()
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeAlreadyFriends, CodeOf(AlreadyFriends("nope")))
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("nope")))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestIsMatchesWrappedErrors(t *testing.T) {
	err := fmt.Errorf("outer: %w", RequestPending("pending"))
	assert.True(t, Is(err, CodeRequestPending))
	assert.False(t, Is(err, CodeNotFound))
}

func TestFromStoreMapsContextTrouble(t *testing.T) {
	assert.Equal(t, CodeStoreUnavailable, CodeOf(FromStore(context.DeadlineExceeded)))
	assert.Equal(t, CodeStoreUnavailable, CodeOf(FromStore(context.Canceled)))
	assert.Equal(t, CodeInternal, CodeOf(FromStore(errors.New("boom"))))
	assert.Nil(t, FromStore(nil))
}

func TestFromStoreKeepsTaxonomyErrors(t *testing.T) {
	original := NotFriends("not friends")
	assert.Equal(t, CodeNotFriends, CodeOf(FromStore(original)))
}
