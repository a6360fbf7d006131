// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// to distinguish between different failure scenarios. For example,
// ErrForbidden indicates that the current user is not authorized to mutate a
// resource owned by someone else, while ErrOrderMismatch signals that a
// requested ordering does not cover the slideshow's current member set.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own (or, for private slideshows, may not view).
// Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrSlideshowNotFound is returned when a slideshow lookup yields no rows.
var ErrSlideshowNotFound = errors.New("slideshow not found")

// ErrPhotoNotFound is returned when a referenced photo does not exist.
var ErrPhotoNotFound = errors.New("photo not found")

// ErrMemberNotFound is returned when a photo is not a member of the
// slideshow it was supposed to be removed from.
var ErrMemberNotFound = errors.New("photo is not part of the slideshow")

// ErrOrderMismatch is returned when a reorder request does not name exactly
// the slideshow's current member set. Applying such a list would leave the
// position sequence gapped or duplicated, so it is rejected up front.
var ErrOrderMismatch = errors.New("order list does not match slideshow members")
