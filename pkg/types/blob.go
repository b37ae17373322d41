package types

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var blobValidator = validator.New(validator.WithRequiredStructEnabled())

// versionProbe reads only the version tag of a stored blob.
type versionProbe struct {
	Version int `json:"version"`
}

func probeVersion(raw []byte) (int, error) {
	var probe versionProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, fmt.Errorf("decode blob version: %w", err)
	}
	return probe.Version, nil
}

// UnsupportedVersionError is returned when a stored blob carries a schema version this build cannot read.
type UnsupportedVersionError struct {
	Kind    string
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s: unsupported version %d", e.Kind, e.Version)
}
