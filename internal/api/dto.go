package api

import "vibe/internal/types"

// Project kinds accepted by the create endpoint.
const (
	ProjectTypeMiniapp = "miniapp"
	ProjectTypeWeb     = "web"
)

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

type CreateProjectRequest struct {
	Name        string `json:"name,omitempty"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type renameProjectRequest struct {
	Name string `json:"name"`
}

type routingKeyRequest struct {
	ProjectID string `json:"project_id"`
	Device    string `json:"device"`
}

type routingKeyResponse struct {
	Path string `json:"path"`
}

type projectListResponse struct {
	Projects []Project `json:"projects"`
	Total    int       `json:"total,omitempty"`
}

type historyResponse struct {
	Events []types.HistoryEvent `json:"events"`
	Total  int                  `json:"total,omitempty"`
}

type Version struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type versionsResponse struct {
	Versions []Version `json:"versions"`
}

// UploadedImage correlates a stored object path with the caller-assigned
// image id sent alongside the multipart part.
type UploadedImage struct {
	Path    string `json:"path"`
	ImageID string `json:"image_id"`
}

type FailedImage struct {
	ImageID string `json:"image_id"`
	Reason  string `json:"reason,omitempty"`
}

type UploadResult struct {
	Success []UploadedImage `json:"success"`
	Failed  []FailedImage   `json:"failed"`
}

type paymentCheckRequest struct {
	ProjectID string `json:"project_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
}

type PaymentStatus struct {
	Paid    bool   `json:"paid"`
	Plan    string `json:"plan,omitempty"`
	Message string `json:"message,omitempty"`
}
