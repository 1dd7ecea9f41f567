package core

// Logger is the minimal logging contract shared by all packages.
// args may carry wrapped errors, context maps and an auth identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Notifier surfaces short, localized, user-visible messages.
// Implementations must never render raw backend error text.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}
