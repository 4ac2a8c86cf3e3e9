package model

import "fmt"

// FetchError reports an unreachable source or a non-2xx response.
// Only the one source is skipped.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// EmbeddingServiceError reports an unreachable embedding service or malformed output.
// Only the one chunk or document is skipped.
type EmbeddingServiceError struct {
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationError reports a failed language model call. The answer request is aborted.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IndexCorruptionError is fatal for the index instance, it has to be rebuilt
// from its source documents.
type IndexCorruptionError struct {
	Index string
	Err   error
}

func (e *IndexCorruptionError) Error() string {
	return fmt.Sprintf("index %s corrupted: %v", e.Index, e.Err)
}

func (e *IndexCorruptionError) Unwrap() error { return e.Err }
