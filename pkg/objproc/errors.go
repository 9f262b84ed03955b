package objproc

import "errors"

var (
	// ErrMalformedNumericField is recorded when a position, uv, normal or reference token is not a number.
	ErrMalformedNumericField = errors.New("malformed numeric field")

	// ErrUnsupportedPolygon is recorded when a face has more than four (or fewer than three) references.
	ErrUnsupportedPolygon = errors.New("unsupported polygon")

	// ErrReferenceOutOfRange is recorded when a face or line references an attribute that does not exist.
	ErrReferenceOutOfRange = errors.New("reference out of range")

	// ErrQueueCapacityExceeded is returned by the director when a job is dropped because the queue is full.
	ErrQueueCapacityExceeded = errors.New("queue capacity exceeded")

	// ErrIllegalTermination is the panic value used when a running slot is forcibly terminated.
	ErrIllegalTermination = errors.New("illegal termination of a running slot")

	// ErrDirectorBusy is returned when Drive is called while another Drive is in progress.
	ErrDirectorBusy = errors.New("director is already driving")
)
