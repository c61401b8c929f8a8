package prescription

import "errors"

var (
	ErrSuggestionNotFound = errors.New("prescription suggestion not found")
)
