package assemble

import "github.com/matzehuels/recompose/pkg/errors"

var (
	errNoGenerator = errors.New(errors.ErrCodeNotReady, "no preview and no generator configured")
	errNoFetcher   = errors.New(errors.ErrCodeNotReady, "remote preview but no fetcher configured")
	errEmptyBounds = errors.New(errors.ErrCodeInvalidInput, "layer has empty bounds")
)
