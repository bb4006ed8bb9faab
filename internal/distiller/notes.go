package distiller

import (
	"context"
	"fmt"
	"sort"

	"pulsehq.app/pulse/internal/model"
)

const (
	// maxFilesPerNote caps file paths listed per feature note.
	maxFilesPerNote = 3

	// Ungrouped-thread backlog thresholds for the review-needed note.
	reviewBacklogThreshold     = 10
	reviewHighBacklogThreshold = 50
)

func (d *Distiller) codebaseNotes(ctx context.Context, project string) ([]model.CodebaseNote, error) {
	features, err := d.stores.Features.List(ctx)
	if err != nil {
		return nil, err
	}

	var notes []model.CodebaseNote
	for _, f := range features {
		mappings, err := d.stores.CodeMappings.ListByFeature(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		if note, ok := FeatureNote(f, mappings); ok {
			notes = append(notes, note)
		}
	}

	ungrouped, err := d.stores.Groups.CountUngroupedThreads(ctx, project)
	if err != nil {
		return nil, err
	}
	if note, ok := ReviewNote(ungrouped); ok {
		notes = append(notes, note)
	}

	return boundNotes(notes), nil
}

// FeatureNote emits a note for a feature that has code-location mappings,
// listing up to three distinct file paths.
func FeatureNote(f model.Feature, mappings []model.CodeMapping) (model.CodebaseNote, bool) {
	if len(mappings) == 0 {
		return model.CodebaseNote{}, false
	}

	seen := make(map[string]bool)
	var files []string
	for _, m := range mappings {
		if seen[m.Path] {
			continue
		}
		seen[m.Path] = true
		files = append(files, m.Path)
		if len(files) == maxFilesPerNote {
			break
		}
	}

	return model.CodebaseNote{
		Area:     f.Name,
		Note:     fmt.Sprintf("%s maps to %d code location(s)", f.Name, len(mappings)),
		Files:    files,
		Priority: model.PriorityMedium,
	}, true
}

// ReviewNote emits a backlog warning when too many threads remain ungrouped.
func ReviewNote(ungrouped int) (model.CodebaseNote, bool) {
	if ungrouped <= reviewBacklogThreshold {
		return model.CodebaseNote{}, false
	}

	priority := model.PriorityMedium
	if ungrouped > reviewHighBacklogThreshold {
		priority = model.PriorityHigh
	}
	return model.CodebaseNote{
		Area:     "triage",
		Note:     fmt.Sprintf("%d unresolved threads are not yet grouped and need review", ungrouped),
		Priority: priority,
	}, true
}

func boundNotes(notes []model.CodebaseNote) []model.CodebaseNote {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Priority.Weight() != notes[j].Priority.Weight() {
			return notes[i].Priority.Weight() > notes[j].Priority.Weight()
		}
		return notes[i].Area < notes[j].Area
	})
	if len(notes) > MaxCodebaseNotes {
		notes = notes[:MaxCodebaseNotes]
	}
	return notes
}
