package memes

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPool is returned when a random draw has nothing to draw from.
	ErrEmptyPool = errors.New("no memes in pool")
	// ErrNoVotes is returned when the ledger has no entries.
	ErrNoVotes = errors.New("no votes recorded")
	// ErrMemeNotFound is returned when a meme id does not resolve.
	ErrMemeNotFound = errors.New("meme not found")
	// ErrAmbiguousID is returned when a meme id prefix matches several memes.
	ErrAmbiguousID = errors.New("meme id is ambiguous")
	// ErrUserHasNoMemes is returned when voting for a user who never submitted.
	ErrUserHasNoMemes = errors.New("user has no memes")
	// ErrScopeMismatch is returned at open time when persisted vote keys do not
	// match the configured vote scope.
	ErrScopeMismatch = errors.New("vote keys do not match vote scope")
)

// ValidationError reports bad user input. No state is changed.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// UnknownCategoryError reports a category outside the fixed set.
type UnknownCategoryError struct {
	Category string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Category)
}
