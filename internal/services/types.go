package services

// PageField is one size-bounded block of formatted member lines.
type PageField struct {
	Name   string
	Value  string
	Inline bool
}

// Page is one rendered display message. Pages are ephemeral: they are built
// from the stored rows on every refresh and never persisted. The platform
// adapter converts them to embeds.
type Page struct {
	Title       string
	Description string
	Color       string
	Fields      []PageField
}

// Discord embed ceilings. A line that would overflow the current field
// starts a new field; a field that would overflow the page starts a new page.
const (
	maxFieldChars = 1024
	maxPageFields = 25
	maxPageChars  = 6000
)

// Controls describes the interactive buttons attached to a pushed message.
// QueueID is stamped into each button's custom ID so the handler can route
// the click back to the right queue.
type Controls struct {
	QueueID   uint
	JoinLeave bool
	Positions bool
	Pull      bool
}

// RefreshOpts tunes one display refresh request.
type RefreshOpts struct {
	// DisplayIDs restricts the refresh to a subset of the queue's displays.
	// Empty means all of them.
	DisplayIDs []uint
	// ForceNew sends a fresh message instead of editing, used when displays
	// are newly attached and must not edit an unrelated prior message.
	ForceNew bool
	// InitiatorID is the user to notify when a display fails, when known.
	InitiatorID string
}

// SurfaceTransport is the narrow interface to the chat platform used by the
// display pusher. Implementations map platform errors to ErrSurfaceForbidden
// and ErrMessageNotFound.
type SurfaceTransport interface {
	// CanPostTo verifies the channel is reachable and the bot may post there.
	CanPostTo(channelID string) error
	// SendPages sends a new message and returns its ID.
	SendPages(channelID string, pages []Page, controls Controls) (string, error)
	// EditMessage updates a prior message in place, preserving its controls.
	EditMessage(channelID, messageID string, pages []Page) error
	// DeleteMessage removes a message. Callers treat failures as best-effort.
	DeleteMessage(channelID, messageID string) error
	// StripControls removes the interactive controls from a message without
	// touching its content.
	StripControls(channelID, messageID string) error
}

// DisplayIdentity is a member's resolved, platform-specific identity.
type DisplayIdentity struct {
	Mention string
	Name    string
}

// IdentityResolver resolves a user ID to a display identity. A user who has
// left the guild yields ErrIdentityNotFound.
type IdentityResolver interface {
	Resolve(guildID, userID string) (*DisplayIdentity, error)
}

// Notifier delivers fire-and-forget direct messages.
type Notifier interface {
	NotifyMembers(userIDs []string, message string)
	NotifyOperator(userID string, message string)
}
