package core

// Logger reports messages and errors.
// args may hold errors, extra data (map[string]interface{}) and the calling Principal.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Principal identifies the authenticated caller of a request.
type Principal struct {
	ID       string
	Username string
	Email    string
}
