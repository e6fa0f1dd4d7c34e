// Package services defines the business logic of the bot: reconciling
// fetched sheet rows into case records, building reports and delivering
// them to subscribers. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed
// at the bot and handler layers.
package services

import "errors"

// Pipeline errors.
var (
	// ErrDataAnomaly marks a fetch that looks like an upstream reset (an
	// implausibly low national total late in the day). The cycle is skipped.
	ErrDataAnomaly = errors.New("data anomaly: probable upstream reset")

	// ErrIdentityResolution is returned when a fetched row cannot be matched
	// to exactly one known region. The whole cycle is aborted.
	ErrIdentityResolution = errors.New("identity resolution failed")

	// ErrPersistence wraps write failures of a cycle.
	ErrPersistence = errors.New("persistence failed")

	// ErrNoRegions is returned when reconciliation runs before seeding.
	ErrNoRegions = errors.New("no regions stored; run seed first")
)

// Reporting errors.
var (
	// ErrRegionNotFound indicates that the requested region or area does not
	// exist.
	ErrRegionNotFound = errors.New("region not found")
)
