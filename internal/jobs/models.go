package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a single job, independent of its chain stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusCompleted  Status = "completed"
	StatusDelivered  Status = "delivered"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusReview,
	StatusCompleted,
	StatusDelivered,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every lifecycle value in workflow order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus normalizes value and reports whether it names a lifecycle status.
func ParseStatus(value string) (Status, bool) {
	status := Status(normalizeToken(value))
	_, ok := statusSet[status]
	return status, ok
}

// Finished reports whether the job has reached completed or delivered.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusDelivered
}

// Stage is a job's position within a workflow chain. The zero value marks a
// job that does not belong to a chain.
type Stage string

const (
	StageNone           Stage = ""
	StageCapture        Stage = "capture"
	StagePostProduction Stage = "post_production"
	StageFinishing      Stage = "finishing"
)

var allStages = []Stage{StageCapture, StagePostProduction, StageFinishing}

// AllStages returns the chain stages in production order.
func AllStages() []Stage {
	out := make([]Stage, len(allStages))
	copy(out, allStages)
	return out
}

// ParseStage normalizes value and reports whether it names a chain stage.
func ParseStage(value string) (Stage, bool) {
	stage := Stage(normalizeToken(value))
	for _, s := range allStages {
		if s == stage {
			return stage, true
		}
	}
	return StageNone, false
}

// Rank returns the 1-based production order of the stage, or 0 for StageNone.
func (s Stage) Rank() int {
	for i, candidate := range allStages {
		if candidate == s {
			return i + 1
		}
	}
	return 0
}

// Role returns the worker role that performs the stage.
func (s Stage) Role() Role {
	switch s {
	case StageCapture:
		return RoleCaptureSpecialist
	case StagePostProduction:
		return RolePostProductionSpecialist
	case StageFinishing:
		return RoleFinishingSpecialist
	default:
		return ""
	}
}

// ServiceType returns the package line item consumed when a job enters the stage.
func (s Stage) ServiceType() ServiceType {
	switch s {
	case StageCapture:
		return ServiceCapture
	case StagePostProduction:
		return ServicePostProduction
	case StageFinishing:
		return ServiceFinishing
	default:
		return ""
	}
}

// Target is a requested advance destination: a later stage or handover.
type Target string

const (
	TargetPostProduction Target = Target(StagePostProduction)
	TargetFinishing      Target = Target(StageFinishing)
	TargetHandover       Target = "handover"
)

// ParseTarget normalizes value and reports whether it names an advance target.
// Capture is never a target because no stage precedes it.
func ParseTarget(value string) (Target, bool) {
	target := Target(normalizeToken(value))
	switch target {
	case TargetPostProduction, TargetFinishing, TargetHandover:
		return target, true
	default:
		return "", false
	}
}

// Stage returns the stage the target moves the job into, or StageNone for handover.
func (t Target) Stage() Stage {
	if t == TargetHandover {
		return StageNone
	}
	return Stage(t)
}

// JobType classifies the kind of work a job represents.
type JobType string

const (
	TypeCapture        JobType = "capture"
	TypePostProduction JobType = "post_production"
	TypeFinishing      JobType = "finishing"
	TypeConsultation   JobType = "consultation"
	TypeRevision       JobType = "revision"
)

var allJobTypes = []JobType{TypeCapture, TypePostProduction, TypeFinishing, TypeConsultation, TypeRevision}

// ParseJobType normalizes value and reports whether it names a job type.
func ParseJobType(value string) (JobType, bool) {
	jobType := JobType(normalizeToken(value))
	for _, t := range allJobTypes {
		if t == jobType {
			return jobType, true
		}
	}
	return "", false
}

// Stage returns the production stage matching a chainable job type.
func (t JobType) Stage() Stage {
	switch t {
	case TypeCapture:
		return StageCapture
	case TypePostProduction:
		return StagePostProduction
	case TypeFinishing:
		return StageFinishing
	default:
		return StageNone
	}
}

// ServiceType returns the package line item this job type consumes.
func (t JobType) ServiceType() ServiceType {
	return ServiceType(t)
}

// ServiceType names a package line item.
type ServiceType string

const (
	ServiceCapture        ServiceType = "capture"
	ServicePostProduction ServiceType = "post_production"
	ServiceFinishing      ServiceType = "finishing"
	ServiceConsultation   ServiceType = "consultation"
	ServiceRevision       ServiceType = "revision"
)

// ParseServiceType normalizes value and reports whether it names a service type.
func ParseServiceType(value string) (ServiceType, bool) {
	jobType, ok := ParseJobType(value)
	if !ok {
		return "", false
	}
	return jobType.ServiceType(), true
}

// Role is the single production or administrative role a worker holds.
type Role string

const (
	RoleAdmin                    Role = "admin"
	RoleCoordinator              Role = "coordinator"
	RoleCaptureSpecialist        Role = "capture_specialist"
	RolePostProductionSpecialist Role = "post_production_specialist"
	RoleFinishingSpecialist      Role = "finishing_specialist"
	RoleClient                   Role = "client"
)

var allRoles = []Role{
	RoleAdmin,
	RoleCoordinator,
	RoleCaptureSpecialist,
	RolePostProductionSpecialist,
	RoleFinishingSpecialist,
	RoleClient,
}

// ParseRole normalizes value and reports whether it names a role.
func ParseRole(value string) (Role, bool) {
	role := Role(normalizeToken(value))
	for _, r := range allRoles {
		if r == role {
			return role, true
		}
	}
	return "", false
}

// Administrative reports whether the role may override job state.
func (r Role) Administrative() bool {
	return r == RoleAdmin || r == RoleCoordinator
}

// Actor identifies who is performing a request.
type Actor struct {
	ID   string
	Role Role
}

// Worker is a person who can be assigned jobs.
type Worker struct {
	ID        string
	Name      string
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryEntry records one transition applied to a job.
type HistoryEntry struct {
	FromStage  Stage     `json:"fromStage,omitempty"`
	ToStage    Stage     `json:"toStage,omitempty"`
	FromStatus Status    `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	At         time.Time `json:"at"`
	ActorID    string    `json:"actorId"`
	Note       string    `json:"note,omitempty"`
}

// Job is a unit of billable production work.
type Job struct {
	ID                   string
	Title                string
	Type                 JobType
	Status               Status
	Stage                Stage
	ChainID              string
	WorkflowOrder        int
	DependsOn            string
	AssigneeID           string
	CreatorID            string
	ClientID             string
	PriceCents           int64
	ExtraCostCents       int64
	ExtraCostReason      string
	CountsAgainstPackage bool
	History              []HistoryEntry
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Chained reports whether the job belongs to a workflow chain.
func (j *Job) Chained() bool {
	return j != nil && j.Stage != StageNone
}

// Precondition captures the stored state a conditional write expects to find.
func (j *Job) Precondition() Precondition {
	return Precondition{Version: j.Version, Status: j.Status, Stage: j.Stage}
}

// GatedPrecondition is Precondition plus the predecessor gate when the job
// depends on another.
func (j *Job) GatedPrecondition() Precondition {
	pre := j.Precondition()
	pre.PredecessorFinished = j.DependsOn != ""
	return pre
}

// Clone returns a deep copy so a transition can build the next state without
// touching the loaded one.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	if j.History != nil {
		clone.History = make([]HistoryEntry, len(j.History))
		copy(clone.History, j.History)
	}
	return &clone
}

// WithHistory returns a fresh history slice with entry appended.
func (j *Job) WithHistory(entry HistoryEntry) []HistoryEntry {
	next := make([]HistoryEntry, len(j.History), len(j.History)+1)
	copy(next, j.History)
	return append(next, entry)
}

// Precondition is the expected prior state of an update-with-precondition.
type Precondition struct {
	Version int
	Status  Status
	Stage   Stage
	// PredecessorFinished additionally requires the row's depends_on job, when
	// one is still set, to be completed or delivered at commit time.
	PredecessorFinished bool
}

// JobFilter narrows ListJobs results. Empty fields match everything.
type JobFilter struct {
	Statuses   []Status
	AssigneeID string
	ClientID   string
	ChainID    string
	Limit      int
}

// WorkerFilter narrows ListWorkers results.
type WorkerFilter struct {
	Roles      []Role
	ActiveOnly bool
}

// Notification is a one-way message to exactly one recipient.
type Notification struct {
	ID          string
	RecipientID string
	Kind        string
	Title       string
	Body        string
	JobID       string
	CreatedAt   time.Time
}

func normalizeToken(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer("-", "_", " ", "_").Replace(value)
}
