package enums

// OutboxEventType names a domain event stored in the outbox table.
type OutboxEventType string

const (
	EventUploadDeleteRequested OutboxEventType = "upload.delete_requested"
)

// OutboxAggregateType names the entity an outbox event refers to.
type OutboxAggregateType string

const (
	AggregateUpload OutboxAggregateType = "upload"
)
