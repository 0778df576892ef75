package vmx

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so staleness checks are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// UUIDGenerator produces random UUIDs for run identifiers.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
