package domain

// PipelineSettings is owned by a configuration collaborator and read-only
// here. An absent settings row is treated as auto-reject disabled.
type PipelineSettings struct {
	CompanyID                string  `json:"company_id"`
	AutoRejectEnabled        bool    `json:"auto_reject_enabled"`
	AutoRejectThreshold      float64 `json:"auto_reject_threshold"`
	MinApplicationsThreshold int64   `json:"min_applications_threshold"`
	SendRejectionEmail       bool    `json:"send_rejection_email"`
}
