package domain

import "errors"

// Error kinds. Callers wrap these with fmt.Errorf("...: %w", Err...) and
// test for them with errors.Is.
var (
	// ErrParse marks a malformed knowledge-base document or JSONL line.
	ErrParse = errors.New("parse error")

	// ErrInvalidVector marks a vector that is not a sequence of numbers.
	ErrInvalidVector = errors.New("invalid vector")

	// ErrMissingField marks a required field that is absent.
	ErrMissingField = errors.New("missing field")

	// ErrConnection marks an unreachable vector index.
	ErrConnection = errors.New("connection error")

	// ErrSchema marks a collection that does not exist or cannot be created.
	ErrSchema = errors.New("schema error")

	// ErrEncoding marks an embedding model failure.
	ErrEncoding = errors.New("encoding error")

	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)
