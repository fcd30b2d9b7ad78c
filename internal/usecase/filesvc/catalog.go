package filesvc

import (
	"sort"
	"sync"
	"time"

	"github.com/sir_venger/flatstore/internal/models"
)

// catalog текущий набор файлов и счётчики, защищённые одним мьютексом.
// Публикация файла на носителе и обновление счётчиков выполняются под
// одной блокировкой, поэтому снимок метрик всегда совпадает с содержимым.
type catalog struct {
	mu          sync.RWMutex
	sizes       map[string]int64
	storedTotal int64
	totalBytes  int64
}

func newCatalog(sizes map[string]int64) *catalog {
	c := &catalog{sizes: make(map[string]int64, len(sizes))}
	for name, size := range sizes {
		c.sizes[name] = size
		c.totalBytes += size
	}

	return c
}

// commit вызывает publish под блокировкой записи и при успехе учитывает файл.
func (c *catalog) commit(name string, size int64, publish func() error) (replaced bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err = publish(); err != nil {
		return false, err
	}

	old, replaced := c.sizes[name]
	c.sizes[name] = size
	c.totalBytes += size - old
	c.storedTotal++

	return replaced, nil
}

func (c *catalog) names() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.sizes))
	for name := range c.sizes {
		out = append(out, name)
	}
	c.mu.RUnlock()

	sort.Strings(out)
	return out
}

func (c *catalog) snapshot(now time.Time) models.MetricsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return models.MetricsSnapshot{
		FilesStoredTotal:  c.storedTotal,
		FilesCurrent:      int64(len(c.sizes)),
		TotalStorageBytes: c.totalBytes,
		TotalStorageMB:    float64(c.totalBytes) / models.BytesPerMB,
		Timestamp:         now,
	}
}
