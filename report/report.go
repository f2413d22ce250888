// Package report renders the outcome of a processing run as a machine
// readable JSON document.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"mudio"
)

type Report struct {
	Version   string  `json:"version"`
	Timestamp string  `json:"timestamp"`
	Summary   Summary `json:"summary"`
	Files     []File  `json:"files"`
}

type Summary struct {
	Total          int `json:"total"`
	Success        int `json:"success"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
	BackupsCreated int `json:"backups_created"`
	BackupsRemoved int `json:"backups_removed"`
}

type File struct {
	Path       string            `json:"path"`
	Status     string            `json:"status"`
	Changes    map[string]Change `json:"changes,omitempty"`
	Error      string            `json:"error,omitempty"`
	BackupPath string            `json:"backup_path,omitempty"`
	BackupKept *bool             `json:"backup_kept,omitempty"`
}

type Change struct {
	Old []string `json:"old"`
	New []string `json:"new"`
}

// Build summarises a run's results. The timestamp is taken at build time.
func Build(results []mudio.Result) Report {
	rep := Report{
		Version:   "1.0",
		Timestamp: time.Now().Format(time.RFC3339),
		Files:     make([]File, 0, len(results)),
	}
	rep.Summary.Total = len(results)

	for _, res := range results {
		switch {
		case res.Status == mudio.StatusSkipped:
			rep.Summary.Skipped++
		case res.Status.Passed():
			rep.Summary.Success++
		default:
			rep.Summary.Failed++
		}

		file := File{Path: res.Path, Status: fileStatus(res.Status)}
		if res.Original != nil && res.Planned != nil {
			changes := map[string]Change{}
			for field, changed := range res.Changes {
				if !changed {
					continue
				}
				changes[field] = Change{
					Old: valuesOrEmpty(res.Original[field]),
					New: valuesOrEmpty(res.Planned[field]),
				}
			}
			if len(changes) > 0 {
				file.Changes = changes
			}
		}
		if res.Err != nil {
			file.Error = res.Err.Error()
		}
		if res.BackupPath != "" {
			kept := res.BackupKept
			file.BackupPath = res.BackupPath
			file.BackupKept = &kept

			rep.Summary.BackupsCreated++
			if !kept {
				rep.Summary.BackupsRemoved++
			}
		}
		rep.Files = append(rep.Files, file)
	}
	return rep
}

// WriteFile writes the report as indented JSON.
func (r Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func fileStatus(s mudio.Status) string {
	switch {
	case s == mudio.StatusSkipped:
		return "skipped"
	case s.Failed():
		return "error"
	default:
		return "success"
	}
}

// valuesOrEmpty keeps newly created or deleted fields rendering as [], not null.
func valuesOrEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
