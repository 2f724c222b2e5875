package fetcher

import (
	"errors"

	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
)

// mapFetchErrorToMetadataCause maps fetcher errors to the canonical
// metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err error) metadata.ErrorCause {
	var upstreamErr *failure.UpstreamError
	if errors.As(err, &upstreamErr) {
		return metadata.CauseUpstreamStatus
	}
	var transportErr *failure.TransportError
	if errors.As(err, &transportErr) {
		return metadata.CauseNetworkFailure
	}
	return metadata.CauseUnknown
}
