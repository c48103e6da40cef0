package constants

// Session and context keys
const (
	SessionCookieName  = "annotation_session"
	ContextKeyUsername = "username"
)

// MinUsernameLength is the minimum accepted username length.
const MinUsernameLength = 3

// AnnotationIDPrefix prefixes every ledger id (ANN_000001, ...).
const AnnotationIDPrefix = "ANN_"
