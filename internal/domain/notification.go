package domain

import "time"

// NotificationKind distinguishes confirmations from failures.
type NotificationKind string

// Notification kinds.
const (
	NotificationSuccess NotificationKind = "success"
	NotificationFailure NotificationKind = "failure"
)

// Colours shown alongside a notification.
const (
	ColorSuccess = "lightgreen"
	ColorFailure = "red"
)

// User-facing messages.
const (
	MsgSubmitSynced     = "Quotes synced with server!"
	MsgSubmitFailed     = "Failed to sync quote with server."
	MsgSyncFetched      = "Quotes fetched from server and updated!"
	MsgSyncError        = "Error syncing with server."
	MsgImportSucceeded  = "Quotes imported successfully!"
	MsgImportBadFormat  = "Invalid file format!"
	MsgImportReadFailed = "Error reading JSON file!"
	MsgNoMatches        = "No quotes found in this category."
)

// Notification is a transient message for the user surface.
type Notification struct {
	ID        string
	Message   string
	Kind      NotificationKind
	Color     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Success builds a confirmation notification.
func Success(message string) Notification {
	return Notification{Message: message, Kind: NotificationSuccess, Color: ColorSuccess}
}

// Failure builds a failure notification.
func Failure(message string) Notification {
	return Notification{Message: message, Kind: NotificationFailure, Color: ColorFailure}
}

// Expired reports whether the notification should no longer be shown.
func (n Notification) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}
