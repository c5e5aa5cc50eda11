package api

import "time"

// PollKind distinguishes the two community polls attached to every asset.
type PollKind string

const (
	PollSentiment PollKind = "sentiment"
	PollIntent    PollKind = "intent"
)

// Quote is a point-in-time market quote for an asset.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"change_percent"`
	AssetClass    string    `json:"asset_class"`
	AsOf          time.Time `json:"as_of"`
}

// Poll is the aggregate vote state for one asset poll.
type Poll struct {
	Asset   string         `json:"asset"`
	Kind    PollKind       `json:"kind"`
	Options map[string]int `json:"options"`
	Total   int            `json:"total"`
}

// Comment is one entry in an asset's threaded discussion.
type Comment struct {
	ID        string    `json:"id"`
	Asset     string    `json:"asset"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	EditedAt  time.Time `json:"edited_at,omitempty"`
}

// Session is the result of a successful login or signup.
type Session struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// Profile is the user blob persisted client-side alongside the token.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
