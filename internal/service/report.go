package service

import (
	"time"
)

type BuildState int

const (
	BuildStateUnknown BuildState = iota
	BuildStateSuccess
	BuildStateCompileFailed
	BuildStateInternalError
)

func (s BuildState) String() string {
	switch s {
	case BuildStateSuccess:
		return "success"
	case BuildStateCompileFailed:
		return "compile failed"
	case BuildStateInternalError:
		return "internal error"
	default:
		return "unknown"
	}
}

type Status struct {
	State   BuildState
	Message string
	Report  *Report
}

// Report is the outcome of one build pass. Roots are ordered application
// first, then by package name and path in package.
type Report struct {
	Start time.Time
	End   time.Time
	Files int
	Roots []RootResult
}

// RootResult is the outcome for one root.
type RootResult struct {
	Key         string
	DisplayPath string
	Tier        string // cache tier the result came from, empty if compiled
	Artifact    string // path of the written .css file
	Duration    time.Duration
	Err         error
}

func (r RootResult) Cached() bool {
	return r.Err == nil && r.Tier != ""
}

func (r *Report) Failed() int {
	return r.count(func(rr RootResult) bool { return rr.Err != nil })
}

func (r *Report) Cached() int {
	return r.count(RootResult.Cached)
}

// Compiled counts roots compiled by the engine in this pass.
func (r *Report) Compiled() int {
	return r.count(func(rr RootResult) bool { return rr.Err == nil && rr.Tier == "" && rr.Key != "" })
}

func (r *Report) count(pred func(RootResult) bool) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, rr := range r.Roots {
		if pred(rr) {
			n++
		}
	}
	return n
}

func (r *Report) Elapsed() time.Duration {
	return r.End.Sub(r.Start)
}
