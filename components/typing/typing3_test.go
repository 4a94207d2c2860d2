package typing

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	//before
	fmt.Println("\nSTART UNIT TEST 'typing'")

	m.Run()

	//after
	fmt.Println("END UNIT TEST 'typing'")
}

func Test_FreshStampIsTyping(t *testing.T) {
	asserts := assert.New(t)
	now := time.Now()

	stamp := strconv.FormatInt(now.Add(-time.Second).UnixMilli(), 10)
	asserts.True(isFresh(stamp, now, DefaultTTL))
}

func Test_StaleStampReadsAsNotTyping(t *testing.T) {
	asserts := assert.New(t)
	now := time.Now()

	// stored value says typing, but the stamp is past the TTL
	stamp := strconv.FormatInt(now.Add(-10*time.Second).UnixMilli(), 10)
	asserts.False(isFresh(stamp, now, DefaultTTL))
}

func Test_StampOnTTLBoundary(t *testing.T) {
	asserts := assert.New(t)
	// pin to a millisecond boundary, stamps only carry milli precision
	now := time.UnixMilli(time.Now().UnixMilli())

	exactly := strconv.FormatInt(now.Add(-DefaultTTL).UnixMilli(), 10)
	asserts.True(isFresh(exactly, now, DefaultTTL))

	beyond := strconv.FormatInt(now.Add(-DefaultTTL-time.Millisecond).UnixMilli(), 10)
	asserts.False(isFresh(beyond, now, DefaultTTL))
}

func Test_GarbageStampIsStale(t *testing.T) {
	asserts := assert.New(t)

	asserts.False(isFresh("not-a-number", time.Now(), DefaultTTL))
	asserts.False(isFresh("", time.Now(), DefaultTTL))
}
