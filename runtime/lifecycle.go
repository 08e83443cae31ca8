package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
)

// Controller orchestrates connect, disconnect, join and delete as atomic
// sequences over the presence registry and the membership table. A single
// mutex serializes the compound read-modify-write transitions; recipient
// sets and payloads are computed under the lock, delivery always happens
// after it is released so a slow socket cannot stall registry mutations.
type Controller struct {
	mu        sync.Mutex
	log       *slog.Logger
	presence  contract.IPresence
	members   contract.IMembership
	router    *Router
	catalog   contract.Catalog
	transport contract.Transport
}

func NewController(log *slog.Logger, presence contract.IPresence,
	members contract.IMembership, router *Router,
	catalog contract.Catalog, transport contract.Transport) *Controller {
	return &Controller{
		log:       log,
		presence:  presence,
		members:   members,
		router:    router,
		catalog:   catalog,
		transport: transport,
	}
}

// Connect registers the resolved user's new connection, broadcasts the
// updated presence snapshot, then delivers the channel list to the caller
// only. A duplicate connection id is an invariant violation: logged as an
// error and returned without touching state further.
func (c *Controller) Connect(ctx context.Context, user domain.User, conn domain.ConnectionID) error {
	c.mu.Lock()
	err := c.presence.Add(user, conn)
	snapshot := c.presence.Snapshot()
	c.mu.Unlock()

	if err != nil {
		c.log.Error("presence add failed", "connection", conn, "error", err)
		return err
	}

	c.transport.SendToAll(ctx, presenceListEvent(snapshot))

	channels, err := c.catalog.List()
	if err != nil {
		c.log.Error("channel list fetch failed", "error", err)
		c.sendError(ctx, conn, err)
		return nil
	}
	c.deliverTo(ctx, conn, event.NewChannelList(channels))
	return nil
}

// Disconnect leaves the current channel silently, removes the presence
// entry, and broadcasts the new snapshot. Safe to call with an unknown or
// already-removed connection; the duplicate call changes nothing and
// broadcasts nothing.
func (c *Controller) Disconnect(ctx context.Context, conn domain.ConnectionID) {
	c.mu.Lock()
	c.members.Leave(conn)
	removed := c.presence.Remove(conn)
	snapshot := c.presence.Snapshot()
	c.mu.Unlock()

	if !removed {
		return
	}
	c.transport.SendToAll(ctx, presenceListEvent(snapshot))
}

// CreateChannel delegates to the catalog and broadcasts the refreshed
// channel list. A catalog failure is reported to the caller only and
// leaves all state unchanged.
func (c *Controller) CreateChannel(ctx context.Context, conn domain.ConnectionID, cmd domain.CreateChannelCommand) error {
	channel, err := c.catalog.Create(cmd.Title)
	if err != nil {
		c.sendError(ctx, conn, err)
		return err
	}
	c.log.Info("channel created", "id", channel.ID, "title", channel.Title)

	c.broadcastChannelList(ctx, conn)
	return nil
}

// DeleteChannel removes the catalog record, purges all memberships, and
// notifies the evicted connections before broadcasting the refreshed
// list. The title is captured before deletion; the record is gone
// afterwards.
func (c *Controller) DeleteChannel(ctx context.Context, conn domain.ConnectionID, cmd domain.DeleteChannelCommand) error {
	channel, err := c.catalog.Get(cmd.ChannelID)
	if err != nil {
		c.sendError(ctx, conn, err)
		return err
	}
	if err := c.catalog.Delete(cmd.ChannelID); err != nil {
		c.sendError(ctx, conn, err)
		return err
	}

	c.mu.Lock()
	evicted := c.members.Purge(cmd.ChannelID)
	c.mu.Unlock()

	c.log.Info("channel deleted", "id", channel.ID, "title", channel.Title, "evicted", len(evicted))

	if len(evicted) > 0 {
		c.transport.SendToSet(ctx, evicted,
			event.NewMessage(fmt.Sprintf("[%s] has been destroyed", channel.Title)))
		for _, member := range evicted {
			c.deliverTo(ctx, member, event.NewChannelLeft(member, channel.ID))
		}
	}

	c.broadcastChannelList(ctx, conn)
	return nil
}

// JoinChannel switches the connection to the target channel. The leave
// half notifies the old channel's remaining members, the join half the
// new channel's members including the mover; a nil target performs only
// the leave half, a connection with no old channel skips it.
func (c *Controller) JoinChannel(ctx context.Context, user domain.User, conn domain.ConnectionID, cmd domain.JoinChannelCommand) error {
	if cmd.ChannelID == nil {
		c.leaveCurrent(ctx, user, conn)
		return nil
	}

	// Resolved ahead of the compound transition: supplies the title for
	// the join notice and fails fast on a dead id.
	target, err := c.catalog.Get(*cmd.ChannelID)
	if err != nil {
		c.sendError(ctx, conn, err)
		return err
	}

	c.mu.Lock()
	previous, err := c.members.Join(conn, target.ID)
	var oldRemaining, newMembers []domain.ConnectionID
	if err == nil {
		if previous != nil {
			oldRemaining = c.members.MembersOf(*previous)
		}
		newMembers = c.members.MembersOf(target.ID)
	}
	c.mu.Unlock()

	if err != nil {
		c.sendError(ctx, conn, err)
		return err
	}

	if previous != nil {
		c.notifyLeft(ctx, user, conn, *previous, oldRemaining)
	}

	c.transport.SendToSet(ctx, newMembers, event.NewChannelJoined(conn, target.ID))
	c.transport.SendToSet(ctx, newMembers,
		event.NewMessage(fmt.Sprintf("[%s] joined %s", user.Email, target.Title)))
	return nil
}

// SendMessage delegates to the router and delivers to the computed set.
// Routing failures go back to the sender only.
func (c *Controller) SendMessage(ctx context.Context, sender domain.User, conn domain.ConnectionID, cmd domain.SendMessageCommand) error {
	delivery, err := c.router.Route(sender, cmd)
	if err != nil {
		c.sendError(ctx, conn, err)
		return err
	}

	msg := event.NewMessage(delivery.Text)
	if delivery.Broadcast {
		c.transport.SendToAll(ctx, msg)
		return nil
	}
	c.transport.SendToSet(ctx, delivery.Recipients, msg)
	return nil
}

func (c *Controller) leaveCurrent(ctx context.Context, user domain.User, conn domain.ConnectionID) {
	c.mu.Lock()
	previous := c.members.Leave(conn)
	var remaining []domain.ConnectionID
	if previous != nil {
		remaining = c.members.MembersOf(*previous)
	}
	c.mu.Unlock()

	if previous == nil {
		return
	}
	c.notifyLeft(ctx, user, conn, *previous, remaining)
}

// notifyLeft tells a channel's remaining members that conn has gone; the
// membership is already removed when this runs.
func (c *Controller) notifyLeft(ctx context.Context, user domain.User, conn domain.ConnectionID, channel domain.ChannelID, remaining []domain.ConnectionID) {
	c.transport.SendToSet(ctx, remaining, event.NewChannelLeft(conn, channel))

	old, err := c.catalog.Get(channel)
	if err != nil {
		// Channel already deleted; the structured event above is enough.
		return
	}
	c.transport.SendToSet(ctx, remaining,
		event.NewMessage(fmt.Sprintf("[%s] left %s", user.Email, old.Title)))
}

func (c *Controller) broadcastChannelList(ctx context.Context, conn domain.ConnectionID) {
	channels, err := c.catalog.List()
	if err != nil {
		c.log.Error("channel list fetch failed", "error", err)
		c.sendError(ctx, conn, err)
		return
	}
	c.transport.SendToAll(ctx, event.NewChannelList(channels))
}

func (c *Controller) sendError(ctx context.Context, conn domain.ConnectionID, err error) {
	c.deliverTo(ctx, conn, event.NewError(err.Error()))
}

// deliverTo sends to a single connection, downgrading a delivery failure
// to a log line.
func (c *Controller) deliverTo(ctx context.Context, conn domain.ConnectionID, evt event.Envelope) {
	if err := c.transport.SendTo(ctx, conn, evt); err != nil {
		c.log.Warn("delivery failed", "connection", conn, "event", evt.Event, "error", err)
	}
}

func presenceListEvent(snapshot []domain.PresenceEntry) event.Envelope {
	return event.NewPresenceList(lo.Map(snapshot, func(e domain.PresenceEntry, _ int) event.PresenceEntry {
		return event.PresenceEntry{
			UserID:       string(e.User.ID),
			Email:        e.User.Email,
			ConnectionID: string(e.Connection),
		}
	}))
}
