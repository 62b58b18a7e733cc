package planner

import (
	"context"
	"fmt"

	"github.com/Ning0612/devmanager/internal/adapter"
	"github.com/Ning0612/devmanager/internal/core/diff"
	"github.com/Ning0612/devmanager/internal/domain"
	"github.com/Ning0612/devmanager/internal/manifest"
)

// Planner turns a manifest into a staging plan
type Planner interface {
	Plan(ctx context.Context, m *manifest.Manifest, source adapter.Adapter) (*domain.StagePlan, error)
}

// DefaultPlanner compares source mtimes against the manifest's cache
type DefaultPlanner struct {
	Detector *diff.Detector
}

// NewDefaultPlanner creates a planner; force recopies every file
func NewDefaultPlanner(force bool) *DefaultPlanner {
	return &DefaultPlanner{Detector: diff.NewDetector(force)}
}

// Plan emits one mkdir per manifest dir, then one action per file in
// manifest order. Files that cannot be read become ActionFail entries so
// the executor can report them without aborting the run.
func (p *DefaultPlanner) Plan(ctx context.Context, m *manifest.Manifest, source adapter.Adapter) (*domain.StagePlan, error) {
	manifestMTime, err := m.FileModTime()
	if err != nil {
		return nil, err
	}
	lastRun := m.LastRun()

	plan := &domain.StagePlan{
		Manifest: m.Path(),
		Actions:  make([]domain.StageAction, 0, len(m.Dirs)+len(m.Files)),
	}

	for _, dir := range m.Dirs {
		plan.Actions = append(plan.Actions, domain.StageAction{
			Type:   domain.ActionMkdir,
			Dest:   dir,
			Reason: "ensure directory",
		})
	}

	for _, entry := range m.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plan.Actions = append(plan.Actions, p.planFile(ctx, m, source, entry, manifestMTime, lastRun))
	}

	calculateStats(plan)
	return plan, nil
}

func (p *DefaultPlanner) planFile(ctx context.Context, m *manifest.Manifest, source adapter.Adapter, entry manifest.Entry, manifestMTime, lastRun float64) domain.StageAction {
	action := domain.StageAction{
		Source:   entry.Source,
		Dest:     entry.Target(),
		Compress: entry.Compress,
	}

	info, err := source.Stat(ctx, entry.Source)
	if err != nil {
		action.Type = domain.ActionFail
		action.Reason = err.Error()
		return action
	}
	if !info.IsFile() {
		action.Type = domain.ActionFail
		action.Reason = fmt.Sprintf("%s: %v", entry.Source, domain.ErrNotFile)
		return action
	}
	action.SourceInfo = &info

	decision := p.Detector.Compare(diff.Seconds(info.ModTime), m.Recorded(entry.Source), manifestMTime, lastRun)
	action.Reason = decision.String()
	if decision.NeedsCopy() {
		action.Type = domain.ActionCopy
	} else {
		action.Type = domain.ActionSkip
	}
	return action
}

// calculateStats computes summary statistics for a plan
func calculateStats(plan *domain.StagePlan) {
	for _, action := range plan.Actions {
		switch action.Type {
		case domain.ActionMkdir:
			plan.Stats.DirsToCreate++
		case domain.ActionCopy:
			plan.Stats.FilesToCopy++
			if action.SourceInfo != nil {
				plan.Stats.BytesToCopy += action.SourceInfo.Size
			}
		case domain.ActionSkip:
			plan.Stats.FilesToSkip++
		case domain.ActionFail:
			plan.Stats.FilesMissing++
		}
	}
}
