package app

import (
	"fmt"
	"strings"

	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

var (
	ErrNotFound     = ports.ErrNotFound
	ErrConflict     = ports.ErrConflict
	ErrDuplicateKey = ports.ErrDuplicateKey
	ErrMissingKey   = ports.ErrMissingKey
	ErrInvalidInput = ports.ErrInvalidInput
)

// RemoteError décrit un échec du catalogue distant : erreur réseau (Status == 0)
// ou réponse non-2xx (Status + Body). errors.Is(err, ports.ErrRemoteUnavailable) est vrai.
type RemoteError struct {
	Endpoint string
	Status   int
	Body     string
	Err      error
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status == 0 {
		if e.Err == nil {
			return "catalog request failed"
		}
		return "catalog request failed: " + e.Err.Error()
	}
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "…"
	}
	return fmt.Sprintf("catalog http error: %d %s", e.Status, body)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ports.ErrRemoteUnavailable }
