package session

import "fmt"

// ErrorKind classifies a SetupError.
type ErrorKind int

const (
	NoFileSelected ErrorKind = iota
	FileNotFound
	LibraryNotSet
	IncorrectFolder
	NotReady
)

func (k ErrorKind) String() string {
	switch k {
	case NoFileSelected:
		return "no-file-selected"
	case FileNotFound:
		return "file-not-found"
	case LibraryNotSet:
		return "library-not-set"
	case IncorrectFolder:
		return "incorrect-folder"
	case NotReady:
		return "not-ready"
	default:
		return "unknown"
	}
}

// SetupError is an expected precondition failure that halts the current
// stage. Its message is also recorded in the session's error diagnostics;
// Err, when set, is the underlying sentinel for errors.Is.
type SetupError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *SetupError) Error() string { return e.Message }

func (e *SetupError) Unwrap() error { return e.Err }

// Diagnostic messages recorded by the session.
const (
	MsgNoFileSelected = "No file selected"
	MsgFileNotFound   = "LDraw file not found"
	MsgFileLoaded     = "LDraw file loaded and parsed"
	MsgFileIsMPD      = "LDraw file is a Multi-Part document"
	MsgFileBadFormat  = "LDraw file not the correct format"
	MsgLibraryNotSet  = "Library not set"
	MsgLibraryExists  = "Library exists"
	MsgNotReady       = "File or library wasn't loaded correctly, or this function was called prematurely"
	MsgPartsParsed    = "Unique parts successfully parsed"
)

// incorrectFolderMessage names the marker file the library root lacks.
func incorrectFolderMessage(marker string) string {
	return fmt.Sprintf("Incorrect folder selected. Requires '%s'", marker)
}
