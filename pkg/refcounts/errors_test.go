package refcounts

import (
	"testing"

	"github.com/buildbarn/vdo-refcounts/pkg/testutil"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorConstructorsProduceExpectedStatus(t *testing.T) {
	testutil.RequireEqualStatus(t,
		status.Errorf(codes.FailedPrecondition, "slab 3 is not open"),
		errInvalidAdminState("slab %d is not open", 3))

	testutil.RequireEqualStatus(t,
		status.Errorf(codes.Internal, "reference count for PBN 1000 is invalid"),
		errRefCountInvalid("reference count for PBN %d is invalid", 1000))

	testutil.RequireEqualStatus(t,
		status.Errorf(codes.OutOfRange, "PBN 42 is out of range"),
		errOutOfRange("PBN %d is out of range", 42))

	testutil.RequireEqualStatus(t,
		status.Errorf(codes.ResourceExhausted, "slab 3 has no free physical blocks"),
		errNoSpace("slab %d has no free physical blocks", 3))

	testutil.RequireEqualStatus(t,
		status.Errorf(codes.DataLoss, "reference block 7 is corrupt"),
		errCorruptComponent("reference block %d is corrupt", 7))
}

func TestErrInternalWrapsAnInternalStatusAndIsDetectable(t *testing.T) {
	err := errInternal("free block count underflowed")
	testutil.RequireEqualStatus(t, status.Errorf(codes.Internal, "free block count underflowed"), err)
	if !errIsInternal(err) {
		t.Fatal("errIsInternal must report true for an error constructed by errInternal")
	}
	if errIsInternal(errRefCountInvalid("free block count underflowed")) {
		t.Fatal("errIsInternal must report false for a plain REF_COUNT_INVALID error sharing the same gRPC code")
	}
}

func TestWrapPrefixesTheUnderlyingMessage(t *testing.T) {
	testutil.RequirePrefixedStatus(t,
		status.Errorf(codes.OutOfRange, "adjusting reference count for PBN 1000"),
		wrap(errOutOfRange("PBN %d is out of range", 42), "adjusting reference count for PBN 1000"))
}
