package platform

import "errors"

// errClosed is returned by an InputProvider.Read after Close, once its
// queue has drained, so the event loop can exit its read loop cleanly
// (spec.md §4.4 cancellation: "dropping the input provider's sender
// causes the loop to exit cleanly").
var errClosed = errors.New("platform: input provider closed")

// ErrClosed is the exported sentinel callers can compare against with
// errors.Is.
var ErrClosed = errClosed
