package util

import (
	"context"
	"fmt"

	"google.golang.org/grpc/status"
)

// StatusWrap prepends a string to the message of an existing error.
func StatusWrap(err error, msg string) error {
	p := status.Convert(err).Proto()
	p.Message = fmt.Sprintf("%s: %s", msg, p.Message)
	return status.ErrorProto(p)
}

// StatusFromContext converts the error associated with a context to a
// gRPC Status error. This function ensures that errors such as
// context.DeadlineExceeded are properly converted to Status objects
// having the code DEADLINE_EXCEEDED.
func StatusFromContext(ctx context.Context) error {
	if s := status.FromContextError(ctx.Err()); s != nil {
		return s.Err()
	}
	return nil
}
