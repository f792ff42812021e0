package syncrun

import (
	"time"

	"pcsync/internal/episodes"
)

// Failure records one skipped episode.
type Failure struct {
	UUID  string
	Title string
	Show  string
	Stage string
	Err   error
}

// Summary reports what a run did.
type Summary struct {
	RunID            string
	Mode             string
	Resolved         int
	Cached           int
	Downloaded       int
	DownloadFailures int
	Staged           int
	StageFailures    int
	OutputCleared    int
	PlaylistPath     string
	PlaylistEntries  int
	Failures         []Failure
	Duration         time.Duration
}

func (s *Summary) recordFailure(stage string, c episodes.Candidate, err error) {
	switch stage {
	case stageDownload:
		s.DownloadFailures++
	case stageStage:
		s.StageFailures++
	}
	s.Failures = append(s.Failures, Failure{
		UUID:  c.UUID,
		Title: c.Title,
		Show:  c.ShowName,
		Stage: stage,
		Err:   err,
	})
}
