package leave

import (
	"context"
	"errors"
	"time"
)

// ErrSlotTaken is returned by UpdateRequestApproval when the slot was
// already filled or the request was rejected before the write landed.
var ErrSlotTaken = errors.New("approval slot already decided")

type StoreAPI interface {
	GetRequestByID(ctx context.Context, id string) (Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, error)
	// InsertRequest persists the request together with its bypass slots.
	InsertRequest(ctx context.Context, req Request) (Request, error)
	UpdateRequestApproval(ctx context.Context, id string, update ApprovalUpdate) (Request, error)
	ListApprovedOverlapping(ctx context.Context, employeeCode string, start, end time.Time, kinds []Kind) ([]Request, error)
}
