package core

// Logger is any service that can log leveled messages along with optional
// context args (an error, a map of extra data, a logged-in user).
type Logger interface {
	// Enable turns forwarding to the remote error tracker on or off;
	// messages are always written to the std logger.
	Enable(enabled bool)

	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
