package refcounts

import (
	"github.com/buildbarn/vdo-refcounts/pkg/util"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error kind constructors. Every error the engine returns is a gRPC
// status error, constructed with the code table from SPEC_FULL.md §7, so
// callers elsewhere in a larger VDO-style system can dispatch on
// status.Code(err) the same way the teacher's blobstore backends do
// (pkg/blobstore/local/hashing_key_location_map.go checks
// status.Code(err) == codes.NotFound).

// errInvalidAdminState reports that an operation was attempted while the
// slab was not in a state that permits it.
func errInvalidAdminState(format string, args ...interface{}) error {
	return status.Errorf(codes.FailedPrecondition, format, args...)
}

// errRefCountInvalid reports an illegal counter transition: decrementing
// an already-free block, incrementing past the maximum, re-incrementing a
// block-map page, and similar.
func errRefCountInvalid(format string, args ...interface{}) error {
	return status.Errorf(codes.Internal, format, args...)
}

// errOutOfRange reports that a physical block number falls outside the
// slab's data blocks.
func errOutOfRange(format string, args ...interface{}) error {
	return status.Errorf(codes.OutOfRange, format, args...)
}

// errNoSpace reports that Allocate found no free counter in the slab.
func errNoSpace(format string, args ...interface{}) error {
	return status.Errorf(codes.ResourceExhausted, format, args...)
}

// errCorruptComponent reports an on-disk version mismatch found on the
// load path.
func errCorruptComponent(format string, args ...interface{}) error {
	return status.Errorf(codes.DataLoss, format, args...)
}

// errInternal reports an internal impossibility: a state the engine
// assumes can never occur during normal operation (an unknown operation
// tag, a dirty-queue enqueue failure in a collaborator, etc). Per §7,
// these additionally enter read-only mode; errIsInternal lets callers
// recognize them without confusing them with errRefCountInvalid, which
// shares the same gRPC code but is only ever returned, never latched.
type internalImpossibilityError struct {
	err error
}

func (e *internalImpossibilityError) Error() string {
	return e.err.Error()
}

func (e *internalImpossibilityError) Unwrap() error {
	return e.err
}

func errInternal(format string, args ...interface{}) error {
	return &internalImpossibilityError{err: status.Errorf(codes.Internal, format, args...)}
}

// errIsInternal reports whether err was constructed by errInternal.
func errIsInternal(err error) bool {
	_, ok := err.(*internalImpossibilityError)
	return ok
}

// wrap prefixes msg onto err's existing status message while preserving
// its code.
func wrap(err error, msg string) error {
	return util.StatusWrap(err, msg)
}
