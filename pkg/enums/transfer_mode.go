package enums

// TransferMode tells the client how bytes reach storage.
type TransferMode string

const (
	// TransferModeDirect streams bytes through the service via the resumable protocol.
	TransferModeDirect TransferMode = "direct"
	// TransferModePresigned has the client PUT straight to the object store.
	TransferModePresigned TransferMode = "presigned"
)

func (m TransferMode) String() string {
	return string(m)
}
