package disappearing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"kawan/utils"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	fmt.Println("\nSTART UNIT TEST 'disappearing'")
	m.Run()
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[string]*DBQueueEntry
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: make(map[string]*DBQueueEntry)}
}

func (me *fakeQueueRepo) Enqueue(messageUID string, deleteAt time.Time) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	// $setOnInsert semantics, the first writer wins
	if _, ok := me.entries[messageUID]; ok {
		return nil
	}
	me.entries[messageUID] = &DBQueueEntry{MessageUID: messageUID, DeleteAt: deleteAt}
	return nil
}

func (me *fakeQueueRepo) ClaimDueEntries(now time.Time, limit int) ([]*DBQueueEntry, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	claimed := []*DBQueueEntry{}
	for _, entry := range me.entries {
		if len(claimed) >= limit {
			break
		}
		if entry.Processed || entry.DeleteAt.After(now) {
			continue
		}
		if entry.ClaimToken != "" && entry.ClaimedAt.After(now.Add(-claimTTL)) {
			continue
		}
		entry.ClaimToken = utils.GetRandomUUID()
		entry.ClaimedAt = now
		c := *entry
		claimed = append(claimed, &c)
	}
	return claimed, nil
}

func (me *fakeQueueRepo) MarkProcessed(messageUID string) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	if entry, ok := me.entries[messageUID]; ok {
		entry.Processed = true
		entry.ClaimToken = ""
		entry.ClaimedAt = time.Time{}
	}
	return nil
}

func (me *fakeQueueRepo) FindEntry(messageUID string) (*DBQueueEntry, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if entry, ok := me.entries[messageUID]; ok {
		c := *entry
		return &c, nil
	}
	return nil, nil
}

type fakeRedactor struct {
	mu       sync.Mutex
	redacted map[string]int
}

func newFakeRedactor() *fakeRedactor {
	return &fakeRedactor{redacted: make(map[string]int)}
}

func (me *fakeRedactor) RedactMessage(messageUID string) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	me.redacted[messageUID]++
	return nil
}

func (me *fakeRedactor) count(messageUID string) int {
	me.mu.Lock()
	defer me.mu.Unlock()

	return me.redacted[messageUID]
}

func TestSweepProcessesDueEntriesOnly(t *testing.T) {
	queue := newFakeQueueRepo()
	redactor := newFakeRedactor()
	sweeper := NewSweeper(queue, redactor, logr.Discard(), time.Second, 100)

	due := utils.GetRandomUUID()
	future := utils.GetRandomUUID()
	require.NoError(t, queue.Enqueue(due, time.Now().Add(-time.Second)))
	require.NoError(t, queue.Enqueue(future, time.Now().Add(time.Hour)))

	processed := sweeper.SweepOnce()
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, redactor.count(due))
	assert.Equal(t, 0, redactor.count(future))

	entry, err := queue.FindEntry(due)
	require.NoError(t, err)
	assert.True(t, entry.Processed)

	entry, err = queue.FindEntry(future)
	require.NoError(t, err)
	assert.False(t, entry.Processed)
}

func TestSweepIsIdempotent(t *testing.T) {
	queue := newFakeQueueRepo()
	redactor := newFakeRedactor()
	sweeper := NewSweeper(queue, redactor, logr.Discard(), time.Second, 100)

	uid := utils.GetRandomUUID()
	require.NoError(t, queue.Enqueue(uid, time.Now().Add(-time.Second)))

	assert.Equal(t, 1, sweeper.SweepOnce())
	assert.Equal(t, 0, sweeper.SweepOnce())
	assert.Equal(t, 1, redactor.count(uid))
}

func TestEnqueueTwiceKeepsFirstSchedule(t *testing.T) {
	queue := newFakeQueueRepo()
	uid := utils.GetRandomUUID()
	first := time.Now().Add(time.Minute)

	require.NoError(t, queue.Enqueue(uid, first))
	require.NoError(t, queue.Enqueue(uid, time.Now().Add(time.Hour)))

	entry, err := queue.FindEntry(uid)
	require.NoError(t, err)
	assert.Equal(t, first, entry.DeleteAt)
}

func TestConcurrentSweepersDoNotDoubleRedact(t *testing.T) {
	queue := newFakeQueueRepo()
	redactor := newFakeRedactor()

	const entries = 20
	uids := make([]string, entries)
	for i := range uids {
		uids[i] = utils.GetRandomUUID()
		require.NoError(t, queue.Enqueue(uids[i], time.Now().Add(-time.Second)))
	}

	var wg sync.WaitGroup
	total := make(chan int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper := NewSweeper(queue, redactor, logr.Discard(), time.Second, 100)
			total <- sweeper.SweepOnce()
		}()
	}
	wg.Wait()
	close(total)

	sum := 0
	for n := range total {
		sum += n
	}
	assert.Equal(t, entries, sum)

	for _, uid := range uids {
		assert.Equal(t, 1, redactor.count(uid), "message %s redacted more than once", uid)
	}
}

func TestStaleClaimIsTakenOver(t *testing.T) {
	queue := newFakeQueueRepo()
	redactor := newFakeRedactor()
	sweeper := NewSweeper(queue, redactor, logr.Discard(), time.Second, 100)

	uid := utils.GetRandomUUID()
	require.NoError(t, queue.Enqueue(uid, time.Now().Add(-time.Hour)))

	// a dead sweeper claimed the entry and never finished
	stale := time.Now().Add(-2 * claimTTL)
	claimed, err := queue.ClaimDueEntries(stale, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	processed := sweeper.SweepOnce()
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, redactor.count(uid))
}
