// Package fileproto описывает HTTP-протокол файлового сервиса: пути, поля и тела ответов.
package fileproto

import "time"

// Параметры REST-протокола.
const (
	ServiceName = "File Storage API"

	PathRoot        = "/"
	PathHealth      = "/health"
	PathFiles       = "/files"
	PathFile        = "/files/{filename}"
	PathMetrics     = "/metrics"
	PathPrometheus  = "/metrics/prometheus"
	PathAdminGC     = "/admin/gc"
	PathAdminConfig = "/admin/config"

	FormFieldFile = "file"

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"

	MessageStored = "File stored successfully"
)

type RootResponse struct {
	Message   string   `json:"message"`
	Endpoints []string `json:"endpoints"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Detail    string    `json:"detail,omitempty"`
}

type UploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type ListResponse struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

type MetricsResponse struct {
	FilesStoredTotal  int64     `json:"files_stored_total"`
	FilesCurrent      int64     `json:"files_current"`
	TotalStorageBytes int64     `json:"total_storage_bytes"`
	TotalStorageMB    float64   `json:"total_storage_mb"`
	Timestamp         time.Time `json:"timestamp"`
}

// ErrorResponse тело любого ответа с ошибкой.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
