package domain

// ChannelID is always strictly positive for a real channel. The catalog
// allocates ids starting at 1, so zero never names a record.
type ChannelID int64

type Channel struct {
	ID    ChannelID `json:"id"`
	Title string    `json:"title"`
}
