package friendreq

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"kawan/apperr"
	"kawan/auth"
	"kawan/components/contacts"
	"kawan/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	fmt.Println("\nSTART UNIT TEST 'friendreq'")
	m.Run()
}

type fakeRequestRepo struct {
	mu   sync.Mutex
	rows map[string]*DBFriendRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{rows: make(map[string]*DBFriendRequest)}
}

func pairOf(sender, receiver string) string {
	return sender + ">" + receiver
}

func (me *fakeRequestRepo) CreateRequest(req *FriendRequest) (*DBFriendRequest, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	key := pairOf(req.Sender, req.Receiver)
	if _, ok := me.rows[key]; ok {
		return nil, apperr.UniquenessConflict("request already exists")
	}

	row := &DBFriendRequest{
		UID:          req.UID,
		Sender:       req.Sender,
		Receiver:     req.Receiver,
		Status:       req.Status,
		AttemptCount: req.AttemptCount,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	me.rows[key] = row
	return copyRow(row), nil
}

func (me *fakeRequestRepo) FindRequestBetween(sender, receiver string) (*DBFriendRequest, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if row, ok := me.rows[pairOf(sender, receiver)]; ok {
		return copyRow(row), nil
	}
	return nil, nil
}

func (me *fakeRequestRepo) FindRequestByUID(uid string) (*DBFriendRequest, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	for _, row := range me.rows {
		if row.UID == uid {
			return copyRow(row), nil
		}
	}
	return nil, nil
}

func (me *fakeRequestRepo) TransitionStatus(uid string, from, to Status) (*DBFriendRequest, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	for _, row := range me.rows {
		if row.UID == uid && row.Status == from {
			row.Status = to
			row.UpdatedAt = time.Now()
			return copyRow(row), nil
		}
	}
	return nil, nil
}

func (me *fakeRequestRepo) ResendRequest(sender, receiver string) (*DBFriendRequest, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	row, ok := me.rows[pairOf(sender, receiver)]
	if !ok || row.Status != Rejected || row.AttemptCount >= MaxAttempts {
		return nil, nil
	}
	row.Status = Pending
	row.AttemptCount++
	row.UpdatedAt = time.Now()
	return copyRow(row), nil
}

func (me *fakeRequestRepo) DeleteRequest(uid string) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	for key, row := range me.rows {
		if row.UID == uid {
			delete(me.rows, key)
			return nil
		}
	}
	return nil
}

func (me *fakeRequestRepo) FindRequestsTo(receiver string, page, limit int) ([]*DBFriendRequest, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	result := []*DBFriendRequest{}
	for _, row := range me.rows {
		if row.Receiver == receiver && row.Status == Pending {
			result = append(result, copyRow(row))
		}
	}
	return result, nil
}

func copyRow(row *DBFriendRequest) *DBFriendRequest {
	c := *row
	return &c
}

type fakeContactRepo struct {
	mu          sync.Mutex
	edges       map[string]*contacts.DBContact
	failUpserts int
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{edges: make(map[string]*contacts.DBContact)}
}

func (me *fakeContactRepo) FindContact(owner, peer string) (*contacts.DBContact, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	if edge, ok := me.edges[pairOf(owner, peer)]; ok {
		c := *edge
		return &c, nil
	}
	return nil, nil
}

func (me *fakeContactRepo) UpsertContactPair(userA, userB string, status contacts.Status, canChat bool) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	if me.failUpserts > 0 {
		me.failUpserts--
		return apperr.Wrap(apperr.CodeStoreUnavailable, "store unavailable", nil)
	}

	for _, pair := range [][2]string{{userA, userB}, {userB, userA}} {
		me.edges[pairOf(pair[0], pair[1])] = &contacts.DBContact{
			Owner:   pair[0],
			Peer:    pair[1],
			Status:  status,
			CanChat: canChat,
		}
	}
	return nil
}

func (me *fakeContactRepo) FindMyContacts(owner string, page, limit int) ([]*contacts.DBContact, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	result := []*contacts.DBContact{}
	for _, edge := range me.edges {
		if edge.Owner == owner {
			c := *edge
			result = append(result, &c)
		}
	}
	return result, nil
}

func (me *fakeContactRepo) SetFavorite(owner, peer string, favorite bool) (*contacts.DBContact, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	edge, ok := me.edges[pairOf(owner, peer)]
	if !ok {
		return nil, nil
	}
	edge.IsFavorite = favorite
	c := *edge
	return &c, nil
}

func claimsFor(uid string) *auth.Claims {
	return &auth.Claims{ID: uid, Usr: "user-" + uid[:8]}
}

func newTestController() (RequestController, *fakeRequestRepo, *fakeContactRepo) {
	requests := newFakeRequestRepo()
	edges := newFakeContactRepo()
	ctr := NewRequestController(requests, edges, nil)
	return ctr, requests, edges
}

func TestSendRequestCreatesPending(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	res, e, code := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, Pending, res.Status)
	assert.Equal(t, 1, res.AttemptCount)
	assert.Equal(t, alice, res.Sender)
	assert.Equal(t, bob, res.Receiver)
}

func TestSendRequestTwiceIsPendingRejection(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	_, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	res, e, code := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	assert.Nil(t, res)
	require.NotNil(t, e)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, e.Message, "already sent")
}

func TestSendRequestToSelfRejected(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()

	res, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: alice})
	assert.Nil(t, res)
	require.NotNil(t, e)
	assert.Equal(t, http.StatusBadRequest, e.Code)
}

func TestAcceptDerivesBothContactEdges(t *testing.T) {
	ctr, _, edges := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	sent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	accepted, e, code := ctr.AcceptRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	require.Nil(t, e)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Accepted, accepted.Status)

	ab, err := edges.FindContact(alice, bob)
	require.NoError(t, err)
	require.NotNil(t, ab)
	assert.True(t, ab.CanChat)

	ba, err := edges.FindContact(bob, alice)
	require.NoError(t, err)
	require.NotNil(t, ba)
	assert.True(t, ba.CanChat)
}

func TestAcceptByNonReceiverForbidden(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	sent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	res, e, _ := ctr.AcceptRequest(claimsFor(alice), &RequestAction{UID: alice, RequestID: sent.UID})
	assert.Nil(t, res)
	require.NotNil(t, e)
	assert.Equal(t, http.StatusForbidden, e.Code)
}

func TestAcceptTwiceIsIdempotent(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	sent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	_, e, _ = ctr.AcceptRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	require.Nil(t, e)

	res, e, _ := ctr.AcceptRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	require.Nil(t, e)
	require.NotNil(t, res)
	assert.Equal(t, Accepted, res.Status)
}

func TestAcceptRejectedRequestIsNotPending(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	sent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	_, e, _ = ctr.RejectRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	require.Nil(t, e)

	res, e, _ := ctr.AcceptRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	assert.Nil(t, res)
	require.NotNil(t, e)
	assert.Contains(t, e.Message, "not pending")
}

func TestAcceptRetryHealsContactPair(t *testing.T) {
	ctr, _, edges := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	sent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	// the status flip lands but the pair write dies underneath it
	edges.failUpserts = 1
	res, e, code := ctr.AcceptRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	assert.Nil(t, res)
	require.NotNil(t, e)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	half, err := edges.FindContact(alice, bob)
	require.NoError(t, err)
	require.Nil(t, half, "no edge should exist yet")

	// retrying the accept must finish the derivation, not report NotPending
	healed, e, code := ctr.AcceptRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	require.Nil(t, e)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, Accepted, healed.Status)

	ab, err := edges.FindContact(alice, bob)
	require.NoError(t, err)
	require.NotNil(t, ab)
	assert.True(t, ab.CanChat)

	ba, err := edges.FindContact(bob, alice)
	require.NoError(t, err)
	require.NotNil(t, ba)
	assert.True(t, ba.CanChat)
}

func TestAcceptUnknownRequestNotFound(t *testing.T) {
	ctr, _, _ := newTestController()
	bob := utils.GetRandomUUID()

	res, e, code := ctr.AcceptRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: utils.GetRandomUUID()})
	assert.Nil(t, res)
	require.NotNil(t, e)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, http.StatusNotFound, e.Code)
}

func TestSendAfterAcceptIsAlreadyFriends(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	sent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)
	_, e, _ = ctr.AcceptRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	require.Nil(t, e)

	res, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	assert.Nil(t, res)
	require.NotNil(t, e)
	assert.Contains(t, e.Message, "already be friends")
}

func TestMutualPendingResolvesToAccepted(t *testing.T) {
	ctr, _, edges := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	_, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	// bob answering with his own request means both want the friendship
	res, e, code := ctr.SendRequest(claimsFor(bob), &SendRequest{UID: bob, To: alice})
	require.Nil(t, e)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, Accepted, res.Status)
	assert.Equal(t, alice, res.Sender)

	ab, err := edges.FindContact(alice, bob)
	require.NoError(t, err)
	require.NotNil(t, ab)
	assert.True(t, ab.CanChat)
}

func TestRejectedRequestCanBeResent(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	sent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	rejected, e, _ := ctr.RejectRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	require.Nil(t, e)
	assert.Equal(t, Rejected, rejected.Status)

	resent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)
	assert.Equal(t, Pending, resent.Status)
	assert.Equal(t, 2, resent.AttemptCount)
}

func TestAttemptsExhaustedAfterThirdRejection(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	row, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	for attempt := 2; attempt <= MaxAttempts; attempt++ {
		_, e, _ = ctr.RejectRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: row.UID})
		require.Nil(t, e)

		row, e, _ = ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
		require.Nil(t, e)
		assert.Equal(t, attempt, row.AttemptCount)
	}

	_, e, _ = ctr.RejectRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: row.UID})
	require.Nil(t, e)

	res, e, code := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	assert.Nil(t, res)
	require.NotNil(t, e)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, e.Message, "exhausted")
}

func TestDeleteRequestByEitherParty(t *testing.T) {
	ctr, requests, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()

	sent, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)

	e, code := ctr.DeleteRequest(claimsFor(bob), &RequestAction{UID: bob, RequestID: sent.UID})
	require.Nil(t, e)
	assert.Equal(t, http.StatusOK, code)

	gone, err := requests.FindRequestByUID(sent.UID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// deleting clears the chain, a new request starts at attempt one
	fresh, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: bob})
	require.Nil(t, e)
	assert.Equal(t, 1, fresh.AttemptCount)
}

func TestGetIncomingRequests(t *testing.T) {
	ctr, _, _ := newTestController()
	alice := utils.GetRandomUUID()
	bob := utils.GetRandomUUID()
	carol := utils.GetRandomUUID()

	_, e, _ := ctr.SendRequest(claimsFor(alice), &SendRequest{UID: alice, To: carol})
	require.Nil(t, e)
	_, e, _ = ctr.SendRequest(claimsFor(bob), &SendRequest{UID: bob, To: carol})
	require.Nil(t, e)

	incoming, e, _ := ctr.GetIncomingRequests(claimsFor(carol), &GetRequests{UID: carol, Page: "1", Limit: "10"})
	require.Nil(t, e)
	assert.Len(t, incoming, 2)
}
