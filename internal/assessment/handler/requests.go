package handler

import (
	"strings"

	dErrors "oact/pkg/domain-errors"
)

// maxIDLength bounds bundle IDs accepted in paths.
const maxIDLength = 128

// BundleRequest carries the bundle ID from the URL path.
type BundleRequest struct {
	ID string
}

func (r *BundleRequest) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "assessment id is required")
	}
	if len(r.ID) > maxIDLength {
		return dErrors.New(dErrors.CodeBadRequest, "assessment id is too long")
	}
	return nil
}
