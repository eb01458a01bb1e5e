package acquisition

import (
	"errors"
	"fmt"
)

// CallbackSource names the collaborator reporting progress.
type CallbackSource string

// Callback sources.
const (
	SourceDownloader     CallbackSource = "downloader"
	SourceMetadataParser CallbackSource = "metadata"
)

// CallbackStatus is the outcome reported by a collaborator.
type CallbackStatus string

// Callback statuses.
const (
	StatusDone   CallbackStatus = "DONE"
	StatusFailed CallbackStatus = "FAILED"
)

// ErrInvalidCallback is returned for callbacks that cannot be mapped to a state.
var ErrInvalidCallback = errors.New("invalid callback")

// Callback is a progress report from the downloader or the metadata parser.
type Callback struct {
	Source CallbackSource `json:"source"`
	ID     string         `json:"id"`
	Status CallbackStatus `json:"status"`
}

// TargetState maps the callback to the state the request moves to.
func (c Callback) TargetState() (State, error) {
	if c.ID == "" {
		return "", fmt.Errorf("%w: missing id", ErrInvalidCallback)
	}
	var done State
	switch c.Source {
	case SourceDownloader:
		done = StateDownloaded
	case SourceMetadataParser:
		done = StateFinished
	default:
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalidCallback, c.Source)
	}

	switch c.Status {
	case StatusDone:
		return done, nil
	case StatusFailed:
		return StateError, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidCallback, c.Status)
}
