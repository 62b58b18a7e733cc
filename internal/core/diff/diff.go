package diff

import "time"

// DefaultWindow is how far the manifest file's mtime may trail its own
// recorded processing time before the manifest counts as hand-edited
const DefaultWindow = 500 * time.Millisecond

// Decision is the outcome of comparing one manifest entry
type Decision int

const (
	// Unchanged means the copy can be skipped
	Unchanged Decision = iota
	// SourceNewer means the source mtime advanced past the recorded one
	SourceNewer
	// ManifestEdited means the manifest changed after its last run, which
	// invalidates every recorded mtime
	ManifestEdited
	// Forced means the caller asked to recopy everything
	Forced
)

func (d Decision) String() string {
	switch d {
	case Unchanged:
		return "unchanged"
	case SourceNewer:
		return "source newer than last copy"
	case ManifestEdited:
		return "manifest edited since last run"
	case Forced:
		return "forced"
	default:
		return "unknown"
	}
}

// NeedsCopy reports whether the file must be copied
func (d Decision) NeedsCopy() bool {
	return d != Unchanged
}

// Detector decides whether a staged file is stale. Times are float epoch
// seconds, the unit stored in the manifest.
type Detector struct {
	// Window is the manifest edit tolerance
	Window time.Duration

	// Force recopies every file
	Force bool
}

// NewDetector creates a detector with the default window
func NewDetector(force bool) *Detector {
	return &Detector{Window: DefaultWindow, Force: force}
}

// ManifestFresh reports whether the manifest file was written by the last
// run rather than edited afterwards. A missing lastRun (zero) is never
// fresh.
func (d *Detector) ManifestFresh(manifestMTime, lastRun float64) bool {
	return manifestMTime-lastRun < d.Window.Seconds()
}

// Compare classifies one file. recorded is zero when the file was never
// copied.
func (d *Detector) Compare(sourceMTime, recorded, manifestMTime, lastRun float64) Decision {
	switch {
	case d.Force:
		return Forced
	case !d.ManifestFresh(manifestMTime, lastRun):
		return ManifestEdited
	case sourceMTime > recorded:
		return SourceNewer
	default:
		return Unchanged
	}
}

// Seconds converts t to float epoch seconds
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
