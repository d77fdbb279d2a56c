// Package apperrors provides the error type shared by the portal client, its transport
// and the command line. Errors form trees: a package declares a root error and derives
// more specific kinds from it with New, so callers can match any level with errors.Is.
// Each error optionally carries a process exit code used by the CLI.
package apperrors

// Error defines the interface for application errors. All methods that change an error
// return a new Error and leave the receiver untouched.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a new kind using the current error as parent
	Msg(msg string) Error                  // replaces the message, keeping the kind
	MsgErr(msg string, err ...error) Error // replaces the message and attaches causes
	Err(err ...error) Error                // attaches causes, keeping the message
	SetExpandError(bool) Error             // controls whether ErrorAll expands causes
	SetExitCode(int) Error                 // sets the exit code reported by the CLI
	ExitCode() int                         // returns the exit code, inherited from the parent
	Prefix(string) Error                   // adds a prefix to the error message
	ErrorAll() string                      // message followed by the attached causes
	UnwrapAll() []error                    // returns the attached causes
}
