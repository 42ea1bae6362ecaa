package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a job in a transport-friendly format.
type Job struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Type                 string         `json:"type"`
	Status               string         `json:"status"`
	Stage                string         `json:"stage,omitempty"`
	ChainID              string         `json:"chainId,omitempty"`
	WorkflowOrder        int            `json:"workflowOrder,omitempty"`
	DependsOn            string         `json:"dependsOn,omitempty"`
	AssigneeID           string         `json:"assigneeId,omitempty"`
	CreatorID            string         `json:"creatorId"`
	ClientID             string         `json:"clientId"`
	PriceCents           int64          `json:"priceCents"`
	ExtraCostCents       int64          `json:"extraCostCents"`
	ExtraCostReason      string         `json:"extraCostReason,omitempty"`
	CountsAgainstPackage bool           `json:"countsAgainstPackage"`
	History              []HistoryEntry `json:"history"`
	Version              int            `json:"version"`
	CreatedAt            string         `json:"createdAt,omitempty"`
	UpdatedAt            string         `json:"updatedAt,omitempty"`
}

// HistoryEntry is one applied transition.
type HistoryEntry struct {
	FromStage  string `json:"fromStage,omitempty"`
	ToStage    string `json:"toStage,omitempty"`
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
	At         string `json:"at"`
	ActorID    string `json:"actorId"`
	Note       string `json:"note,omitempty"`
}

// Warning is an advisory returned with a successful call.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Role    string `json:"role,omitempty"`
}

// Receipt reports the usage record an entitlement debit wrote or found.
type Receipt struct {
	UsageID      string `json:"usageId"`
	AssignmentID string `json:"assignmentId"`
	ServiceType  string `json:"serviceType"`
	Quantity     int    `json:"quantity"`
	Existing     bool   `json:"existing"`
}

// UsageLine is one service type of a usage summary.
type UsageLine struct {
	ServiceType string `json:"serviceType"`
	Granted     int    `json:"granted"`
	Consumed    int    `json:"consumed"`
	Remaining   int    `json:"remaining"`
}

// UsageSummary is the derived balance of one package assignment.
type UsageSummary struct {
	AssignmentID string      `json:"assignmentId"`
	ClientID     string      `json:"clientId"`
	TemplateID   string      `json:"templateId"`
	StartDate    string      `json:"startDate"`
	EndDate      string      `json:"endDate"`
	Active       bool        `json:"active"`
	Lines        []UsageLine `json:"lines"`
}

// ClientPackage is one package assignment and the units its template grants.
type ClientPackage struct {
	AssignmentID string         `json:"assignmentId"`
	TemplateID   string         `json:"templateId"`
	TemplateName string         `json:"templateName,omitempty"`
	StartDate    string         `json:"startDate"`
	EndDate      string         `json:"endDate"`
	Active       bool           `json:"active"`
	Items        map[string]int `json:"items"`
}

// PackageListResponse wraps a client's package assignments.
type PackageListResponse struct {
	ClientID string          `json:"clientId"`
	Packages []ClientPackage `json:"packages"`
}

// Notification is one stored notification.
type Notification struct {
	ID          string `json:"id"`
	RecipientID string `json:"recipientId"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	JobID       string `json:"jobId,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// CreateJobRequest is the body of POST /v1/jobs.
type CreateJobRequest struct {
	Title                string `json:"title"`
	Type                 string `json:"type"`
	ClientID             string `json:"clientId"`
	AssigneeID           string `json:"assigneeId,omitempty"`
	DependsOn            string `json:"dependsOn,omitempty"`
	PriceCents           int64  `json:"priceCents"`
	ExtraCostCents       int64  `json:"extraCostCents"`
	ExtraCostReason      string `json:"extraCostReason,omitempty"`
	CountsAgainstPackage bool   `json:"countsAgainstPackage"`
}

// ChainStepRequest is one step of a CreateChainRequest.
type ChainStepRequest struct {
	Title                string `json:"title"`
	Stage                string `json:"stage"`
	AssigneeID           string `json:"assigneeId,omitempty"`
	PriceCents           int64  `json:"priceCents"`
	ExtraCostCents       int64  `json:"extraCostCents"`
	ExtraCostReason      string `json:"extraCostReason,omitempty"`
	CountsAgainstPackage bool   `json:"countsAgainstPackage"`
}

// CreateChainRequest is the body of POST /v1/chains.
type CreateChainRequest struct {
	ClientID string             `json:"clientId"`
	Steps    []ChainStepRequest `json:"steps"`
}

// AdvanceRequest is the body of POST /v1/jobs/{id}/advance.
type AdvanceRequest struct {
	Target          string `json:"target"`
	Note            string `json:"note,omitempty"`
	ExpectedVersion int    `json:"expectedVersion,omitempty"`
}

// CompleteRequest is the body of POST /v1/jobs/{id}/complete.
type CompleteRequest struct {
	Note string `json:"note,omitempty"`
}

// StatusRequest is the body of POST /v1/jobs/{id}/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// JobResponse wraps a single job and any warnings produced creating or moving it.
type JobResponse struct {
	Job      *Job      `json:"job,omitempty"`
	Changed  bool      `json:"changed"`
	Warnings []Warning `json:"warnings,omitempty"`
	Receipt  *Receipt  `json:"receipt,omitempty"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// ChainResponse wraps the jobs of one workflow chain in order.
type ChainResponse struct {
	ChainID  string    `json:"chainId"`
	Jobs     []Job     `json:"jobs"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// NotificationListResponse wraps a recipient's notifications.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
