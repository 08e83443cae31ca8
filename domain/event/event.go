// Package event defines the outbound wire events pushed to clients.
package event

import "chat-hub/domain"

type Name string

const (
	PresenceList  Name = "presenceList"
	ChannelList   Name = "channelList"
	Message       Name = "message"
	ChannelLeft   Name = "channelLeft"
	ChannelJoined Name = "channelJoined"
	Error         Name = "error"
)

// Envelope is the single frame shape sent to clients.
type Envelope struct {
	Event   Name `json:"event"`
	Payload any  `json:"payload"`
}

// PresenceEntry is the wire form of one live (user, connection) pair.
type PresenceEntry struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	ConnectionID string `json:"connectionId"`
}

// ChannelMembership identifies which connection left or joined which channel.
type ChannelMembership struct {
	ConnectionID string           `json:"connectionId"`
	ChannelID    domain.ChannelID `json:"channelId"`
}

func NewPresenceList(entries []PresenceEntry) Envelope {
	return Envelope{Event: PresenceList, Payload: entries}
}

func NewChannelList(channels []domain.Channel) Envelope {
	return Envelope{Event: ChannelList, Payload: channels}
}

func NewMessage(text string) Envelope {
	return Envelope{Event: Message, Payload: text}
}

func NewChannelLeft(conn domain.ConnectionID, channel domain.ChannelID) Envelope {
	return Envelope{Event: ChannelLeft, Payload: ChannelMembership{
		ConnectionID: string(conn), ChannelID: channel,
	}}
}

func NewChannelJoined(conn domain.ConnectionID, channel domain.ChannelID) Envelope {
	return Envelope{Event: ChannelJoined, Payload: ChannelMembership{
		ConnectionID: string(conn), ChannelID: channel,
	}}
}

func NewError(message string) Envelope {
	return Envelope{Event: Error, Payload: message}
}
