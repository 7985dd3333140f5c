package handler

import (
	"fmt"
	"strings"

	dErrors "oact/pkg/domain-errors"
)

// DigestRequest is the body of POST /v1/alerts/digest.
type DigestRequest struct {
	BundleIDs []string `json:"bundle_ids"`
}

// Validate trims and de-duplicates IDs, keeping first occurrence order.
func (r *DigestRequest) Validate() error {
	seen := make(map[string]struct{}, len(r.BundleIDs))
	ids := make([]string, 0, len(r.BundleIDs))
	for _, id := range r.BundleIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return dErrors.New(dErrors.CodeValidation, "bundle_ids must not contain blank values")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return dErrors.New(dErrors.CodeValidation, "bundle_ids is required")
	}
	if len(ids) > MaxDigestBundles {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d bundle_ids per digest", MaxDigestBundles))
	}
	r.BundleIDs = ids
	return nil
}
