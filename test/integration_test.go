package test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"chat-hub/infrastructure/storage"
	"chat-hub/runtime"
)

// recordingTransport captures every outbound event so the scenario can
// assert on recipients and payloads without a real socket.
type recordingTransport struct {
	mu   sync.Mutex
	sent []delivery
}

type delivery struct {
	to        domain.ConnectionID   // set for SendTo
	set       []domain.ConnectionID // set for SendToSet
	broadcast bool
	evt       event.Envelope
}

func (r *recordingTransport) SendTo(_ context.Context, conn domain.ConnectionID, evt event.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, delivery{to: conn, evt: evt})
	return nil
}

func (r *recordingTransport) SendToSet(_ context.Context, conns []domain.ConnectionID, evt event.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, delivery{set: conns, evt: evt})
}

func (r *recordingTransport) SendToAll(_ context.Context, evt event.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, delivery{broadcast: true, evt: evt})
}

// named returns all recorded deliveries carrying the event name, oldest
// first.
func (r *recordingTransport) named(name event.Name) []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery
	for _, d := range r.sent {
		if d.evt.Event == name {
			out = append(out, d)
		}
	}
	return out
}

func (r *recordingTransport) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	catalog, err := storage.NewChannelCatalog(db, log)
	req.NoError(err)
	t.Cleanup(func() { _ = catalog.Close() })

	transport := &recordingTransport{}
	presence := runtime.NewPresenceRegistry()
	members := runtime.NewMembershipTable(catalog)
	router := runtime.NewRouter(catalog, presence, members, nil)
	controller := runtime.NewController(log, presence, members, router, catalog, transport)

	alice := domain.User{ID: "u-alice", Email: "alice@example.com"}
	bob := domain.User{ID: "u-bob", Email: "bob@example.com"}

	// 1. Alice connects: everyone gets the one-entry snapshot, she alone
	// gets the (empty) channel list
	req.NoError(controller.Connect(ctx, alice, "conn-1"))

	presenceEvents := transport.named(event.PresenceList)
	req.Len(presenceEvents, 1)
	req.True(presenceEvents[0].broadcast)
	req.Equal([]event.PresenceEntry{
		{UserID: "u-alice", Email: "alice@example.com", ConnectionID: "conn-1"},
	}, presenceEvents[0].evt.Payload)

	listEvents := transport.named(event.ChannelList)
	req.Len(listEvents, 1)
	req.Equal(domain.ConnectionID("conn-1"), listEvents[0].to)

	// 2. Alice creates "general": first id ever allocated is 1 and the
	// refreshed list reaches everyone
	transport.reset()
	req.NoError(controller.CreateChannel(ctx, "conn-1", domain.CreateChannelCommand{Title: "general"}))

	general, err := catalog.Get(1)
	req.NoError(err)
	req.Equal("general", general.Title)

	listEvents = transport.named(event.ChannelList)
	req.Len(listEvents, 1)
	req.True(listEvents[0].broadcast)
	req.Equal([]domain.Channel{{ID: 1, Title: "general"}}, listEvents[0].evt.Payload)

	// 3. Alice joins general: no previous channel, so no leave half
	transport.reset()
	target := general.ID
	req.NoError(controller.JoinChannel(ctx, alice, "conn-1", domain.JoinChannelCommand{ChannelID: &target}))

	req.Empty(transport.named(event.ChannelLeft))
	joined := transport.named(event.ChannelJoined)
	req.Len(joined, 1)
	req.Equal([]domain.ConnectionID{"conn-1"}, joined[0].set)

	// 4. Bob connects and joins: the join notice reaches both members
	transport.reset()
	req.NoError(controller.Connect(ctx, bob, "conn-2"))
	req.NoError(controller.JoinChannel(ctx, bob, "conn-2", domain.JoinChannelCommand{ChannelID: &target}))

	presenceEvents = transport.named(event.PresenceList)
	req.Len(presenceEvents, 1)
	req.Len(presenceEvents[0].evt.Payload.([]event.PresenceEntry), 2)

	joined = transport.named(event.ChannelJoined)
	req.Len(joined, 1)
	req.ElementsMatch([]domain.ConnectionID{"conn-1", "conn-2"}, joined[0].set)

	notices := transport.named(event.Message)
	req.Len(notices, 1)
	req.Equal("[bob@example.com] joined general", notices[0].evt.Payload)

	// 5. Alice sends to the channel: both members get the tagged text
	transport.reset()
	req.NoError(controller.SendMessage(ctx, alice, "conn-1", domain.SendMessageCommand{
		Text: "hi", ChannelID: &target,
	}))

	messages := transport.named(event.Message)
	req.Len(messages, 1)
	req.Equal("[general] hi", messages[0].evt.Payload)
	req.ElementsMatch([]domain.ConnectionID{"conn-1", "conn-2"}, messages[0].set)

	// 6. Bob messages Alice directly: delivered to her connections only,
	// tagged with the sender
	transport.reset()
	aliceID := alice.ID
	req.NoError(controller.SendMessage(ctx, bob, "conn-2", domain.SendMessageCommand{
		Text: "hello alice", TargetUserID: &aliceID,
	}))

	messages = transport.named(event.Message)
	req.Len(messages, 1)
	req.Equal("[from bob@example.com] hello alice", messages[0].evt.Payload)
	req.Equal([]domain.ConnectionID{"conn-1"}, messages[0].set)

	// 7. The channel is destroyed: both members are evicted and told so,
	// the record is gone, the refreshed list goes out
	transport.reset()
	req.NoError(controller.DeleteChannel(ctx, "conn-1", domain.DeleteChannelCommand{ChannelID: general.ID}))

	messages = transport.named(event.Message)
	req.Len(messages, 1)
	req.Equal("[general] has been destroyed", messages[0].evt.Payload)
	req.ElementsMatch([]domain.ConnectionID{"conn-1", "conn-2"}, messages[0].set)

	req.Len(transport.named(event.ChannelLeft), 2)
	req.Empty(members.MembersOf(general.ID))
	_, err = catalog.Get(general.ID)
	req.ErrorIs(err, errors.ErrChannelNotFound)

	listEvents = transport.named(event.ChannelList)
	req.Len(listEvents, 1)
	req.True(listEvents[0].broadcast)

	// 8. Sending to the dead channel now fails back to the sender only
	transport.reset()
	err = controller.SendMessage(ctx, alice, "conn-1", domain.SendMessageCommand{
		Text: "anyone?", ChannelID: &target,
	})
	req.ErrorIs(err, errors.ErrChannelNotFound)

	errEvents := transport.named(event.Error)
	req.Len(errEvents, 1)
	req.Equal(domain.ConnectionID("conn-1"), errEvents[0].to)

	// 9. Both disconnect; the repeated disconnect broadcasts nothing
	transport.reset()
	controller.Disconnect(ctx, "conn-1")
	controller.Disconnect(ctx, "conn-2")
	controller.Disconnect(ctx, "conn-2")

	req.Len(transport.named(event.PresenceList), 2)
	req.Empty(presence.Snapshot())
}
