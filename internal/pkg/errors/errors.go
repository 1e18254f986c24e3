package errors

import "errors"

var (
	ErrInvalidParams         = errors.New("invalid parameters")
	ErrNotFound              = errors.New("not found")
	ErrEmbeddingUnavailable  = errors.New("embedding unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrImageIndex            = errors.New("image index failure")
	ErrStoreUnavailable      = errors.New("store unavailable")
)

func IsInvalidParams(err error) bool {
	return errors.Is(err, ErrInvalidParams)
}

func IsEmbeddingUnavailable(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
