package config

import "github.com/pkg/errors"

var (
	errInvalidProvenWindow     = errors.New("config: historicProvenPerformanceLengthInEpochs must be >= slashInactivityConsecutiveEpochThreshold")
	errInvalidTargetPercentage = errors.New("config: slashInactivityTargetPercentage must be in [0,1]")
)
