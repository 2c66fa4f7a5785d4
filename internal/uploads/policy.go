package uploads

import "time"

const (
	// minTransferRate is the conservative floor assumed for client bandwidth
	// when sizing presigned windows, in bytes per second.
	minTransferRate = 50 * 1024

	ttlBuffer  = 5 * time.Minute
	ttlFloor   = 5 * time.Minute
	ttlCeiling = time.Hour
)

// TransferTTL returns the presigned PUT validity window for an object of the
// declared size. The window grows with size so large files do not expire
// mid-transfer, and is clamped so a writable credential never stays valid
// indefinitely.
func TransferTTL(size int64) time.Duration {
	return ttlForSize(size, ttlFloor)
}

// DownloadTTL returns the presigned GET validity window. The floor is
// caller-configurable; buffer and ceiling match the upload policy.
func DownloadTTL(size int64, floor time.Duration) time.Duration {
	if floor <= 0 {
		floor = ttlFloor
	}
	if floor > ttlCeiling {
		floor = ttlCeiling
	}
	return ttlForSize(size, floor)
}

func ttlForSize(size int64, floor time.Duration) time.Duration {
	if size < 0 {
		size = 0
	}
	ttl := time.Duration(size/minTransferRate)*time.Second + ttlBuffer
	if ttl < floor {
		ttl = floor
	}
	if ttl > ttlCeiling {
		ttl = ttlCeiling
	}
	return ttl
}
