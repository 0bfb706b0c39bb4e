// Package ftp implements a single-server FTP protocol engine: a line
// oriented command dispatcher, per-connection session state, path
// sandboxing below a per-user root, and passive-mode data transfers for
// listing, upload, download and directory archiving.
package ftp

// StatusCode is a type for FTP reply codes.
type StatusCode = int

const (
	StatusFileStatusOK            StatusCode = 150 // About to open data connection
	StatusCommandOK               StatusCode = 200 // Command okay
	StatusFileStatus              StatusCode = 213 // Size or timestamp value
	StatusServiceReady            StatusCode = 220 // Service ready for new user
	StatusClosingControl          StatusCode = 221 // Service closing control connection
	StatusClosingDataConnection   StatusCode = 226 // Transfer complete
	StatusEnteringPassiveMode     StatusCode = 227 // Entering Passive Mode (h1,h2,h3,h4,p1,p2)
	StatusUserLoggedIn            StatusCode = 230 // User logged in, proceed
	StatusFileActionOK            StatusCode = 250 // Requested file action okay, completed
	StatusPathnameCreated         StatusCode = 257 // "PATHNAME" created
	StatusUserOKNeedPassword      StatusCode = 331 // User name okay, need password
	StatusFileActionPending       StatusCode = 350 // Pending further information
	StatusCantOpenDataConnection  StatusCode = 425 // Can't open data connection
	StatusTransferAborted         StatusCode = 426 // Connection closed; transfer aborted
	StatusFileActionNotTaken      StatusCode = 450 // Requested file action not taken
	StatusUnknownCommand          StatusCode = 500 // Syntax error, command unrecognized
	StatusSyntaxErrorInParameters StatusCode = 501 // Syntax error in parameters or arguments
	StatusNotImplemented          StatusCode = 502 // Command not implemented
	StatusBadSequence             StatusCode = 503 // Bad sequence of commands
	StatusNotImplementedForParam  StatusCode = 504 // Command not implemented for that parameter
	StatusNotLoggedIn             StatusCode = 530 // Not logged in
	StatusFileUnavailable         StatusCode = 550 // Requested action not taken; file unavailable
	StatusFileNameNotAllowed      StatusCode = 553 // Requested action not taken; file name not allowed
)

var statusText = map[StatusCode]string{
	150: "StatusFileStatusOK",
	200: "StatusCommandOK",
	213: "StatusFileStatus",
	220: "StatusServiceReady",
	221: "StatusClosingControl",
	226: "StatusClosingDataConnection",
	227: "StatusEnteringPassiveMode",
	230: "StatusUserLoggedIn",
	250: "StatusFileActionOK",
	257: "StatusPathnameCreated",
	331: "StatusUserOKNeedPassword",
	350: "StatusFileActionPending",
	425: "StatusCantOpenDataConnection",
	426: "StatusTransferAborted",
	450: "StatusFileActionNotTaken",
	500: "StatusUnknownCommand",
	501: "StatusSyntaxErrorInParameters",
	502: "StatusNotImplemented",
	503: "StatusBadSequence",
	504: "StatusNotImplementedForParam",
	530: "StatusNotLoggedIn",
	550: "StatusFileUnavailable",
	553: "StatusFileNameNotAllowed",
}

// StatusText returns the symbolic name of a reply code, for logging.
func StatusText(code StatusCode) string {
	return statusText[code]
}
