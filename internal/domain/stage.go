package domain

// StageAction represents a single operation in a staging plan
type StageAction struct {
	// Type of action to perform
	Type ActionType

	// Source is the path relative to the manifest srcdir (empty for mkdir)
	Source string

	// Dest is the path relative to the manifest dstdir, including the
	// ".gz" suffix when Compress is set
	Dest string

	// Compress gzips the content while copying
	Compress bool

	// SourceInfo file metadata from source (nil for mkdir)
	SourceInfo *FileInfo

	// Reason explains why this action was chosen
	Reason string
}

// ActionType represents the type of staging action
type ActionType string

const (
	ActionCopy  ActionType = "copy"
	ActionMkdir ActionType = "mkdir"
	ActionSkip  ActionType = "skip"
	ActionFail  ActionType = "fail"
)

// StagePlan represents a complete plan for one staging run
type StagePlan struct {
	// Manifest is the path of the manifest that produced this plan
	Manifest string

	// Actions to execute, mkdir first then files in manifest order
	Actions []StageAction

	// Stats summary
	Stats StagePlanStats
}

// StagePlanStats provides summary statistics for a staging plan
type StagePlanStats struct {
	DirsToCreate int
	FilesToCopy  int
	FilesToSkip  int
	FilesMissing int
	BytesToCopy  int64
}

// StageResult summarizes an executed plan
type StageResult struct {
	FilesCopied  int
	FilesSkipped int
	FilesFailed  int
	BytesWritten int64

	// Errors holds one entry per failed file, in manifest order
	Errors []error
}

// Run statuses recorded in the staging history
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Status classifies the run for the history store
func (r StageResult) Status() string {
	if r.FilesFailed > 0 {
		return StatusPartial
	}
	return StatusSuccess
}
