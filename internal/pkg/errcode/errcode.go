package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrInvalid
	ErrNotFound
	ErrInternal
	ErrEmbeddingUnavailable
	ErrStoreUnavailable
	ErrUploadFailed
	ErrTooMany
)
