// Package preprocess implements the §4.G preprocessor: OS-guessing and a
// weight-ordered list of heuristics that populate a shared
// PreprocessObject, later broadcast read-only to every worker.
//
// Grounded on original_source/plaso/preprocessors/__init__.py's
// PreProcessorsManager (weight-grouped registration, GetWeightList/GetOs)
// and on the shape of engine.py's preprocessing phase.
package preprocess

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/cdtdelta/4n6time-core/internal/pathspec"
	"github.com/cdtdelta/4n6time-core/internal/vfs"
)

// OS is a coarse platform guess, mirroring SUPPORTED_OS tags in the
// reference preprocessors.
type OS string

const (
	OSUnknown OS = ""
	OSLinux   OS = "linux"
	OSMacOS   OS = "macosx"
	OSWindows OS = "windows"
)

// osProbe is one canonical-path check used to guess the target OS.
type osProbe struct {
	os    OS
	paths []string
}

// osProbes is tried in order; the first OS with a matching path wins.
var osProbes = []osProbe{
	{OSWindows, []string{`/Windows/System32`, `/WINDOWS/system32`}},
	{OSMacOS, []string{`/System/Library`}},
	{OSLinux, []string{`/etc`}},
}

// Object is the shared, append-only bag of attributes every heuristic
// writes into and every worker later reads read-only.
type Object struct {
	OS         OS
	Hostname   string
	Users      []string
	Timezone   string
	Attributes map[string]string
}

// NewObject returns an empty preprocess object for the given guessed OS.
func NewObject(os OS) *Object {
	return &Object{OS: os, Attributes: make(map[string]string)}
}

// Heuristic is one preprocessing plugin. Weight controls run order (low
// first) so that a later heuristic may depend on attributes an earlier
// one set.
type Heuristic interface {
	Name() string
	Weight() int
	SupportedOS() []OS
	Run(fs vfs.VFS, root *pathspec.PathSpec, obj *Object) error
}

// RegistryHeuristic is declared for Windows Registry-backed heuristics
// (SID-to-username mapping, registry-derived timezone) but has no
// implementation in this repository: no registry-hive parser ships
// (see the parser registry's sub-plugin note), so there is nothing to
// read a registry key with. A future registry-hive parser can implement
// this interface and register alongside the other heuristics.
type RegistryHeuristic interface {
	Heuristic
	RegistryKeyPath() string
}

// Manager mirrors PreProcessorsManager: a flat registration list, queried
// by weight and by supported OS.
type Manager struct {
	heuristics []Heuristic
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a heuristic to the manager.
func (m *Manager) Register(h Heuristic) {
	m.heuristics = append(m.heuristics, h)
}

// supports reports whether h declares support for the given OS.
func supports(h Heuristic, os OS) bool {
	for _, s := range h.SupportedOS() {
		if s == os {
			return true
		}
	}
	return false
}

// WeightsFor returns every distinct weight used by heuristics supporting
// os, ascending.
func (m *Manager) WeightsFor(os OS) []int {
	seen := make(map[int]bool)
	for _, h := range m.heuristics {
		if supports(h, os) {
			seen[h.Weight()] = true
		}
	}
	weights := make([]int, 0, len(seen))
	for w := range seen {
		weights = append(weights, w)
	}
	sort.Ints(weights)
	return weights
}

// AtWeight returns every heuristic supporting os at exactly the given
// weight.
func (m *Manager) AtWeight(os OS, weight int) []Heuristic {
	var out []Heuristic
	for _, h := range m.heuristics {
		if supports(h, os) && h.Weight() == weight {
			out = append(out, h)
		}
	}
	return out
}

// GuessOSFromPaths probes canonical per-OS paths by calling exists for
// each candidate path and returns the first OS with a match, or
// OSUnknown.
func GuessOSFromPaths(exists func(path string) bool) OS {
	for _, probe := range osProbes {
		for _, p := range probe.paths {
			if exists(p) {
				return probe.os
			}
		}
	}
	return OSUnknown
}

// Run executes every registered heuristic supporting obj.OS, weight
// ascending, mutating obj in place. A failing heuristic is logged and
// skipped; preprocessing never aborts the run.
func (m *Manager) Run(fs vfs.VFS, root *pathspec.PathSpec, obj *Object, log *logrus.Logger) {
	for _, weight := range m.WeightsFor(obj.OS) {
		for _, h := range m.AtWeight(obj.OS, weight) {
			if err := h.Run(fs, root, obj); err != nil {
				log.WithFields(logrus.Fields{
					"heuristic": h.Name(),
					"weight":    weight,
				}).WithError(err).Warn("preprocess heuristic failed, continuing")
			}
		}
	}
}
