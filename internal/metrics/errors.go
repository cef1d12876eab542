package metrics

import "codeberg.org/mutker/pentactl/internal/errors"

const (
	ErrSampleUnavailable = errors.ErrorCode("metrics_sample_unavailable")
)
