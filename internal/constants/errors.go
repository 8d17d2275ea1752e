package constants

import "errors"

// Configuration errors.
var (
	ErrNoSpaceConfigured = errors.New("no space configured, use --space or CFD_SPACE")
	ErrNoTokenConfigured = errors.New("no access token configured, use --token or CFD_TOKEN")
)

// CLI errors.
var (
	ErrDocumentPathRequired = errors.New("document path is required, use - for stdin")
	ErrResourceIDRequired   = errors.New("resource ID is required")
)
