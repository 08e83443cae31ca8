package runtime

import (
	"fmt"

	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/moderation"
)

// Delivery is a computed destination set plus the formatted text. When
// Broadcast is set the recipients slice is empty and delivery goes to
// every live connection.
type Delivery struct {
	Recipients []domain.ConnectionID
	Broadcast  bool
	Text       string
}

// Router selects exactly one destination mode per message, in priority
// order: private to a user, then a channel, then everyone. Channel titles
// are resolved from the catalog at send time so renames show up in
// subsequent messages.
type Router struct {
	catalog  contract.Catalog
	presence contract.IPresence
	members  contract.IMembership
	filter   *moderation.Filter
}

// NewRouter builds a router. filter may be nil to route text unfiltered.
func NewRouter(catalog contract.Catalog, presence contract.IPresence,
	members contract.IMembership, filter *moderation.Filter) *Router {
	return &Router{catalog: catalog, presence: presence, members: members, filter: filter}
}

func (r *Router) Route(sender domain.User, cmd domain.SendMessageCommand) (Delivery, error) {
	text := cmd.Text
	if r.filter != nil {
		text = r.filter.Clean(text)
	}

	if cmd.TargetUserID != nil {
		return Delivery{
			Recipients: r.presence.ConnectionsOf(*cmd.TargetUserID),
			Text:       fmt.Sprintf("[from %s] %s", sender.Email, text),
		}, nil
	}

	if cmd.ChannelID != nil {
		channel, err := r.catalog.Get(*cmd.ChannelID)
		if err != nil {
			return Delivery{}, fmt.Errorf("route to channel %d: %w", *cmd.ChannelID, errors.ErrChannelNotFound)
		}
		return Delivery{
			Recipients: r.members.MembersOf(channel.ID),
			Text:       fmt.Sprintf("[%s] %s", channel.Title, text),
		}, nil
	}

	return Delivery{
		Broadcast: true,
		Text:      fmt.Sprintf("[all] %s", text),
	}, nil
}
