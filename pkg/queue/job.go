package queue

import "context"

// Job is a registered consumer for one message type. Name identifies
// the job, Type selects which messages it receives, Handle runs per
// message and returning an error sends the message to retry.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}
