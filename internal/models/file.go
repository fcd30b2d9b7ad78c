package models

import (
	"io"
	"time"
)

// BytesPerMB делитель для total_storage_mb.
const BytesPerMB = 1 << 20

// FileMeta описывает метаданные сохранённого файла в индексе.
type FileMeta struct {
	Name        string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Sha256      string    `json:"sha256"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StoreResult возвращается после успешной записи файла.
type StoreResult struct {
	Filename string
	Size     int64
	Sha256   string
	Replaced bool
}

// Object открытый на чтение сохранённый файл. Body закрывает вызывающий.
type Object struct {
	Name        string
	Size        int64
	ContentType string
	Sha256      string
	Body        io.ReadCloser
}

// MetricsSnapshot согласованный срез счётчиков на момент Timestamp.
type MetricsSnapshot struct {
	FilesStoredTotal  int64     `json:"files_stored_total"`
	FilesCurrent      int64     `json:"files_current"`
	TotalStorageBytes int64     `json:"total_storage_bytes"`
	TotalStorageMB    float64   `json:"total_storage_mb"`
	Timestamp         time.Time `json:"timestamp"`
}

// Staged содержимое, записанное во временное место бэкенда и ещё не видимое читателям.
type Staged struct {
	ID     string
	Size   int64
	Sha256 string
}
