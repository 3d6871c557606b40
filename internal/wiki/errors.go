package wiki

import "errors"

// Sentinel errors for the content core. The HTTP layer maps these onto the
// response statuses; everything below the service wraps them with %w so the
// classification survives layering.
var (
	// ErrValidation marks a rejected input (bad path, missing field).
	ErrValidation = errors.New("wiki: validation failed")

	// ErrNotFound marks a missing repository, article, or directory.
	ErrNotFound = errors.New("wiki: not found")

	// ErrAlreadyExists marks a create over an existing path.
	ErrAlreadyExists = errors.New("wiki: already exists")

	// ErrNotEmpty marks a delete of a directory that still holds content.
	ErrNotEmpty = errors.New("wiki: directory not empty")

	// ErrConflict marks diverged history that the system will not merge.
	ErrConflict = errors.New("wiki: conflict")

	// ErrReadOnly marks a mutation against a read-only repository.
	ErrReadOnly = errors.New("wiki: repository is read-only")

	// ErrDisabled marks any operation against a disabled repository.
	ErrDisabled = errors.New("wiki: repository is disabled")

	// ErrForbidden marks an admin-only action attempted by a non-admin.
	ErrForbidden = errors.New("wiki: forbidden")

	// ErrGit marks a git failure not covered by a narrower sentinel.
	ErrGit = errors.New("wiki: git operation failed")
)
