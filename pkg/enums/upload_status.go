package enums

import "fmt"

// UploadStatus describes the lifecycle state of an upload record.
type UploadStatus string

const (
	UploadStatusCreated    UploadStatus = "created"
	UploadStatusInitiated  UploadStatus = "initiated"
	UploadStatusUploading  UploadStatus = "uploading"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusDone       UploadStatus = "done"
	UploadStatusCancelled  UploadStatus = "cancelled"
	UploadStatusFailed     UploadStatus = "failed"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusCreated,
	UploadStatusInitiated,
	UploadStatusUploading,
	UploadStatusProcessing,
	UploadStatusDone,
	UploadStatusCancelled,
	UploadStatusFailed,
}

// Forward edges of the status DAG. Terminal states have no edges.
var uploadStatusTransitions = map[UploadStatus][]UploadStatus{
	UploadStatusCreated:    {UploadStatusInitiated, UploadStatusUploading, UploadStatusCancelled, UploadStatusFailed},
	UploadStatusInitiated:  {UploadStatusUploading, UploadStatusCancelled, UploadStatusFailed},
	UploadStatusUploading:  {UploadStatusProcessing, UploadStatusDone, UploadStatusCancelled, UploadStatusFailed},
	UploadStatusProcessing: {UploadStatusDone, UploadStatusFailed},
}

// String returns the literal string for the status.
func (s UploadStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status mutation is permitted.
func (s UploadStatus) IsTerminal() bool {
	switch s {
	case UploadStatusDone, UploadStatusCancelled, UploadStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the DAG permits moving to next.
func (s UploadStatus) CanTransitionTo(next UploadStatus) bool {
	for _, candidate := range uploadStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseUploadStatus converts raw input into an UploadStatus.
func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
