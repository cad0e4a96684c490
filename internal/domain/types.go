package domain

// BeadStatus represents the lifecycle state of a bead
type BeadStatus string

const (
	BeadPending   BeadStatus = "pending"
	BeadRunning   BeadStatus = "running"
	BeadCompleted BeadStatus = "completed"
	BeadFailed    BeadStatus = "failed"
	BeadSkipped   BeadStatus = "skipped"
)

// Terminal reports whether the status is a terminal state
func (s BeadStatus) Terminal() bool {
	switch s {
	case BeadCompleted, BeadFailed, BeadSkipped:
		return true
	}
	return false
}

// RunStatus represents the execution state of a pipeline run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ImprovementCategory groups suggested improvements
type ImprovementCategory string

const (
	CategoryFeatures    ImprovementCategory = "features"
	CategorySecurity    ImprovementCategory = "security"
	CategoryCompliance  ImprovementCategory = "compliance"
	CategoryIntegration ImprovementCategory = "integration"
)

// Categories lists all improvement categories in suggestion order
func Categories() []ImprovementCategory {
	return []ImprovementCategory{
		CategoryFeatures,
		CategorySecurity,
		CategoryCompliance,
		CategoryIntegration,
	}
}

// ChangeStatus is the per-change outcome of applying an improvement
type ChangeStatus string

const (
	ChangeApplied ChangeStatus = "applied"
	ChangeSkipped ChangeStatus = "skipped"
	ChangeFailed  ChangeStatus = "failed"
)

// MergeStatus is the state of a pull request as it moves through the
// auto-merge gate. A freshly opened PR is created until the gate
// decides merged, blocked, or failed.
type MergeStatus string

const (
	MergeCreated MergeStatus = "created"
	MergeMerged  MergeStatus = "merged"
	MergeBlocked MergeStatus = "blocked"
	MergeFailed  MergeStatus = "failed"
)
