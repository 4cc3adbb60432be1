package housing

import (
	"fmt"
	"strings"
)

// CommitmentType is the legal category of a commitment.
type CommitmentType string

// Commitment types.
const (
	CommitmentCOAHSettlement    CommitmentType = "coah_settlement"
	CommitmentCourtOrder        CommitmentType = "court_order"
	CommitmentVoluntary         CommitmentType = "voluntary"
	CommitmentRedevelopmentPlan CommitmentType = "redevelopment_plan"
	CommitmentUnknown           CommitmentType = "unknown"
)

var commitmentTypes = []CommitmentType{
	CommitmentCOAHSettlement,
	CommitmentCourtOrder,
	CommitmentVoluntary,
	CommitmentRedevelopmentPlan,
	CommitmentUnknown,
}

// Valid reports whether t is part of the closed vocabulary.
func (t CommitmentType) Valid() bool {
	for _, known := range commitmentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseCommitmentType maps a stored value onto the vocabulary.
func ParseCommitmentType(raw string) (CommitmentType, error) {
	t := CommitmentType(strings.ToLower(strings.TrimSpace(raw)))
	if t == "" {
		return CommitmentUnknown, nil
	}
	if !t.Valid() {
		return CommitmentUnknown, fmt.Errorf("unknown commitment type %q", raw)
	}
	return t, nil
}

// Status is the lifecycle state reported by a status update.
type Status string

// Statuses.
const (
	StatusAnnounced         Status = "announced"
	StatusPlanning          Status = "planning"
	StatusApproved          Status = "approved"
	StatusUnderConstruction Status = "under_construction"
	StatusCompleted         Status = "completed"
	StatusDelayed           Status = "delayed"
	StatusStalled           Status = "stalled"
	StatusCancelled         Status = "cancelled"
)

// Statuses lists the closed status vocabulary in lifecycle order.
var Statuses = []Status{
	StatusAnnounced,
	StatusPlanning,
	StatusApproved,
	StatusUnderConstruction,
	StatusCompleted,
	StatusDelayed,
	StatusStalled,
	StatusCancelled,
}

// Valid reports whether s is part of the closed vocabulary.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus maps a stored value onto the vocabulary. Free text is rejected.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}
