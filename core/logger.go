package core

// Logger is the logging service used across the app.
// args may carry errors or extra data (map[string]interface{}) to report along with msg.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
