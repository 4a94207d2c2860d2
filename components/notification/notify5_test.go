package notification

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	fmt.Println("\nSTART UNIT TEST 'notification'")
	m.Run()
}

type fakeNotifRepo struct {
	mu     sync.Mutex
	stored []*CreateNotification
	tokens map[string][]*PushToken
}

func newFakeNotifRepo() *fakeNotifRepo {
	return &fakeNotifRepo{tokens: make(map[string][]*PushToken)}
}

func (me *fakeNotifRepo) AddNotifs(notifs []*CreateNotification) ([]*DBNotification, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	me.stored = append(me.stored, notifs...)
	return []*DBNotification{}, nil
}

func (me *fakeNotifRepo) FindNotifsByRecipient(recipient string, page, limit int) ([]*DBNotification, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	result := []*DBNotification{}
	for _, n := range me.stored {
		if n.Recipient == recipient {
			result = append(result, &DBNotification{Recipient: n.Recipient, Type: n.Type, Title: n.Title})
		}
	}
	return result, nil
}

func (me *fakeNotifRepo) MarkRead(recipient string, id string) error {
	return nil
}

func (me *fakeNotifRepo) UpsertPushToken(token *PushToken) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	me.tokens[token.User] = append(me.tokens[token.User], token)
	return nil
}

func (me *fakeNotifRepo) ListPushTokens(user string) ([]*PushToken, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	return append([]*PushToken{}, me.tokens[user]...), nil
}

func (me *fakeNotifRepo) DeletePushToken(user, token string) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	kept := []*PushToken{}
	for _, tk := range me.tokens[user] {
		if tk.Token != token {
			kept = append(kept, tk)
		}
	}
	me.tokens[user] = kept
	return nil
}

type fakePush struct {
	mu      sync.Mutex
	sent    map[string]int
	invalid map[string]bool
}

func newFakePush() *fakePush {
	return &fakePush{sent: make(map[string]int), invalid: make(map[string]bool)}
}

func (me *fakePush) Send(ctx context.Context, token string, data map[string]string) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	if me.invalid[token] {
		return fmt.Errorf("%w: unregistered", ErrInvalidToken)
	}
	me.sent[token]++
	return nil
}

type fakeInApp struct {
	mu       sync.Mutex
	payloads map[string][][]byte
}

func newFakeInApp() *fakeInApp {
	return &fakeInApp{payloads: make(map[string][][]byte)}
}

func (me *fakeInApp) SendToUser(uid string, payload []byte) {
	me.mu.Lock()
	defer me.mu.Unlock()

	me.payloads[uid] = append(me.payloads[uid], payload)
}

func TestHandleStoresAndDeliversPerRecipient(t *testing.T) {
	repo := newFakeNotifRepo()
	push := newFakePush()
	inapp := newFakeInApp()
	fanout := NewFanout(repo, push, inapp)

	require.NoError(t, repo.UpsertPushToken(&PushToken{User: "bob", Token: "tok-bob", Platform: "android"}))

	fanout.handle(context.Background(), Event{
		Type:       EventRequestCreated,
		Subject:    "alice",
		Object:     "req-1",
		Recipients: []string{"bob", "carol"},
		Title:      "Friend request",
	})

	stored, err := repo.FindNotifsByRecipient("bob", 1, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, EventRequestCreated, stored[0].Type)

	stored, err = repo.FindNotifsByRecipient("carol", 1, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	assert.Len(t, inapp.payloads["bob"], 1)
	assert.Len(t, inapp.payloads["carol"], 1)
	assert.Contains(t, string(inapp.payloads["bob"][0]), "friend_request")

	assert.Equal(t, 1, push.sent["tok-bob"])
}

func TestHandleDropsInvalidPushTokens(t *testing.T) {
	repo := newFakeNotifRepo()
	push := newFakePush()
	fanout := NewFanout(repo, push, nil)

	require.NoError(t, repo.UpsertPushToken(&PushToken{User: "bob", Token: "tok-stale", Platform: "android"}))
	require.NoError(t, repo.UpsertPushToken(&PushToken{User: "bob", Token: "tok-live", Platform: "web"}))
	push.invalid["tok-stale"] = true

	fanout.handle(context.Background(), Event{
		Type:       EventRequestAccepted,
		Subject:    "alice",
		Object:     "req-1",
		Recipients: []string{"bob"},
	})

	tokens, err := repo.ListPushTokens("bob")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "tok-live", tokens[0].Token)
	assert.Equal(t, 1, push.sent["tok-live"])
}

func TestHandleIgnoresEventWithoutRecipients(t *testing.T) {
	repo := newFakeNotifRepo()
	fanout := NewFanout(repo, nil, nil)

	fanout.handle(context.Background(), Event{Type: EventRequestCreated, Subject: "alice"})

	assert.Empty(t, repo.stored)
}

func TestPublishNeverBlocks(t *testing.T) {
	fanout := NewFanout(newFakeNotifRepo(), nil, nil)

	// nothing drains the queue here, overflow must drop instead of block
	for i := 0; i < 1000; i++ {
		fanout.Publish(Event{Type: EventRequestCreated, Recipients: []string{"bob"}})
	}
}

func TestPublishOnNilFanout(t *testing.T) {
	var fanout *Fanout
	fanout.Publish(Event{Type: EventRequestCreated, Recipients: []string{"bob"}})
}
