package model

import (
	"time"

	"tourlab/internal/opt"
	"tourlab/internal/sysinfo"
)

// Core domain types shared by the API and the stores.

type PointSetIn struct {
	Name   string      `json:"name,omitempty"`
	Points []opt.Point `json:"points"`
}

type PointSet struct {
	ID        string      `json:"id"`
	Name      string      `json:"name,omitempty"`
	Points    []opt.Point `json:"points"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Statistic is recorded once per finished or stopped run.
type Statistic struct {
	ID         string       `json:"id"`
	RunID      string       `json:"runId"`
	Algorithm  string       `json:"algorithm"`
	Distance   float64      `json:"distance"`
	RuntimeSec float64      `json:"runtimeSec"`
	Tour       []opt.Point  `json:"tour"`
	PointCount int          `json:"pointCount"`
	Cancelled  bool         `json:"cancelled"`
	Iterations int          `json:"iterations"`
	System     sysinfo.Info `json:"system"`
	CreatedAt  time.Time    `json:"createdAt"`
}

type RunRequest struct {
	Algorithm  string            `json:"algorithm"`
	Points     []opt.Point       `json:"points,omitempty"`
	PointSetID string            `json:"pointSetId,omitempty"`
	FixStart   bool              `json:"fixStart,omitempty"`
	Annealing  *opt.AnnealConfig `json:"annealing,omitempty"`
}

type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunCancelled RunState = "cancelled"
	RunFailed    RunState = "failed"
)

type RunStatus struct {
	ID         string      `json:"id"`
	Algorithm  string      `json:"algorithm"`
	State      RunState    `json:"state"`
	Progress   int         `json:"progress"`
	Distance   float64     `json:"distance"`
	Tour       []opt.Point `json:"tour,omitempty"`
	Edges      []opt.Edge  `json:"edges,omitempty"`
	Results    int         `json:"results"`
	RuntimeSec float64     `json:"runtimeSec"`
	PointCount int         `json:"pointCount"`
	Metrics    opt.Metrics `json:"metrics"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
}
