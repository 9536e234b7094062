package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry wraps every journal line with its kind and event time.
type Entry struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data"`
	Event time.Time   `json:"event"`
}

// Journal is an append-only JSONL audit of emitted signals and resolutions.
// It is a local file, not a delivery channel.
type Journal struct {
	mu   sync.Mutex
	path string
}

func New(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &Journal{path: path}, nil
}

func (j *Journal) WriteSignal(data interface{}) error {
	return j.append(Entry{Type: "signal", Data: data, Event: time.Now().UTC()})
}

func (j *Journal) WriteResolution(data interface{}) error {
	return j.append(Entry{Type: "resolution", Data: data, Event: time.Now().UTC()})
}

func (j *Journal) append(entry Entry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(b, '\n'))
	return err
}
