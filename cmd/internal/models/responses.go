package models

// ErrorResponse is returned for every non-2xx API response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// MessageResponse is returned by update and delete
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UploadResponse describes a stored image
type UploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// BulkUploadResponse reports the outcome of a CSV import. Row-level failures are listed
// in Errors while the request itself still succeeds.
type BulkUploadResponse struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	SuccessCount int      `json:"successCount"`
	Errors       []string `json:"errors"`
}

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
