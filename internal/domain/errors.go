package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSource         = errors.New("invalid source")
	ErrNoRenditionsPlanned   = errors.New("no renditions planned")
	ErrBatchConversionFailed = errors.New("batch conversion failed")
	ErrManifestNotFound      = errors.New("manifest not found")
	ErrManifestMalformed     = errors.New("manifest malformed")
	ErrReferentialIntegrity  = errors.New("referential integrity violation")
	ErrVideoBusy             = errors.New("video is locked by another writer")
)

// EncodeJobError is the cause attached to a failed EncodeOutcome.
type EncodeJobError struct {
	Rendition string
	Cause     error
}

func (e *EncodeJobError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Rendition, e.Cause)
}

func (e *EncodeJobError) Unwrap() error {
	return e.Cause
}

// BatchError reports that one or more renditions of a batch failed.
type BatchError struct {
	Count    int
	Failures []EncodeOutcome
}

func (e *BatchError) Error() string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Rendition.Name)
	}
	return fmt.Sprintf("batch conversion failed: %d rendition(s) failed [%s]", e.Count, strings.Join(names, ", "))
}

func (e *BatchError) Is(target error) bool {
	return target == ErrBatchConversionFailed
}

// IntegrityError names a variant group reference with no matching media declaration.
type IntegrityError struct {
	Kind    string
	GroupID string
	URI     string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("referential integrity violation: variant %s references %s group %q with no media declaration", e.URI, e.Kind, e.GroupID)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrReferentialIntegrity
}
