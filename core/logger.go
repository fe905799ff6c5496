package core

// Logger logs messages and reports them to an error tracker.
// args may contain an error, a map[string]interface{} of extra fields and the acting user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
