package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satnam/internal/nostrid"
	id "satnam/pkg/domain"
	dErrors "satnam/pkg/domain-errors"
)

type fakeConn struct {
	url    string
	hub    *fakeHub
	closed bool
}

func (c *fakeConn) Publish(_ context.Context, ev nostr.Event) error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if err := c.hub.reject[c.url]; err != nil {
		return err
	}
	c.hub.published[c.url] = append(c.hub.published[c.url], ev)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeHub struct {
	mu        sync.Mutex
	published map[string][]nostr.Event
	reject    map[string]error
	down      map[string]bool
}

func newHub() *fakeHub {
	return &fakeHub{
		published: map[string][]nostr.Event{},
		reject:    map[string]error{},
		down:      map[string]bool{},
	}
}

func (h *fakeHub) dial(_ context.Context, url string) (Conn, error) {
	if h.down[url] {
		return nil, errors.New("connection refused")
	}
	return &fakeConn{url: url, hub: h}, nil
}

func newPublisher(t *testing.T, hub *fakeHub, relays ...string) *Publisher {
	t.Helper()
	nsec, _, err := nostrid.GenerateKeyPair()
	require.NoError(t, err)
	p, err := New(nsec, relays, WithDialer(hub.dial), WithTimeout(time.Second))
	require.NoError(t, err)
	return p
}

func summary(t *testing.T) Summary {
	t.Helper()
	_, npub, err := nostrid.GenerateKeyPair()
	require.NoError(t, err)
	return Summary{
		SessionID:    id.NewSessionID(),
		CompletedAt:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Participants: []SummaryParticipant{{Npub: npub, Nip05: "ada@satnam.pub"}},
	}
}

func TestBuildSummaryEventIsSigned(t *testing.T) {
	p := newPublisher(t, newHub(), "wss://relay.one")
	s := summary(t)

	ev, err := p.BuildSummaryEvent(s)
	require.NoError(t, err)

	ok, err := ev.CheckSignature()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, p.PublicKey(), ev.PubKey)
	assert.Equal(t, nostr.KindTextNote, ev.Kind)
	assert.Contains(t, ev.Content, "ada@satnam.pub")
	assert.True(t, hasTag(ev.Tags, "p"))
	assert.Equal(t, nostr.Timestamp(s.CompletedAt.Unix()), ev.CreatedAt)
}

func TestPublishSummaryPartialFailure(t *testing.T) {
	hub := newHub()
	hub.down["wss://relay.two"] = true
	p := newPublisher(t, hub, "wss://relay.one", "wss://relay.two")

	res, err := p.PublishSummary(context.Background(), summary(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://relay.one"}, res.Accepted)
	assert.Contains(t, res.Failed, "wss://relay.two")
	assert.Len(t, hub.published["wss://relay.one"], 1)
	assert.Equal(t, res.EventID, hub.published["wss://relay.one"][0].ID)
}

func TestPublishSummaryAllRelaysFail(t *testing.T) {
	hub := newHub()
	hub.reject["wss://relay.one"] = errors.New("blocked: not allowed")
	p := newPublisher(t, hub, "wss://relay.one")

	_, err := p.PublishSummary(context.Background(), summary(t))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNetwork))
}

func TestNewValidatesInputs(t *testing.T) {
	_, err := New([]byte("nsec1garbage"), []string{"wss://relay.one"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	nsec, _, err := nostrid.GenerateKeyPair()
	require.NoError(t, err)
	_, err = New(nsec, []string{"http://relay.one"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = New(nsec, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func hasTag(tags nostr.Tags, key string) bool {
	for _, tag := range tags {
		if len(tag) > 1 && tag[0] == key {
			return true
		}
	}
	return false
}
