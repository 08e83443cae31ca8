package domain

// Client-facing commands. Absent optional fields are nil pointers, never
// zero sentinels.

type CreateChannelCommand struct {
	Title string `json:"title" validate:"required,max=128"`
}

type DeleteChannelCommand struct {
	ChannelID ChannelID `json:"channelId" validate:"required,gt=0"`
}

// JoinChannelCommand moves the connection into ChannelID. A nil target
// leaves the current channel without joining another one.
type JoinChannelCommand struct {
	ChannelID *ChannelID `json:"channelId" validate:"omitempty,gt=0"`
}

// SendMessageCommand routes Text to exactly one destination: the target
// user when set, else the channel when set, else everyone.
type SendMessageCommand struct {
	Text         string     `json:"text" validate:"required,max=4096"`
	ChannelID    *ChannelID `json:"channelId" validate:"omitempty,gt=0"`
	TargetUserID *UserID    `json:"targetUserId" validate:"omitempty"`
}
