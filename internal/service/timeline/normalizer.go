package timeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/karte-api/internal/locale"
	"github.com/jwalitptl/karte-api/internal/model"
)

type labelSet struct {
	status      map[model.VisitStatus]string
	symptoms    string
	treatment   string
	progress    string
	imagesFmt   string
	placeholder string
}

var (
	jaLabels = labelSet{
		status: map[model.VisitStatus]string{
			model.VisitStatusScheduled: "予約",
			model.VisitStatusArrived:   "来院",
			model.VisitStatusCompleted: "完了",
			model.VisitStatusCancelled: "キャンセル",
		},
		symptoms:    "症状",
		treatment:   "施術",
		progress:    "経過",
		imagesFmt:   "画像 %d枚",
		placeholder: "（内容なし）",
	}
	enLabels = labelSet{
		status: map[model.VisitStatus]string{
			model.VisitStatusScheduled: "Scheduled",
			model.VisitStatusArrived:   "Arrived",
			model.VisitStatusCompleted: "Completed",
			model.VisitStatusCancelled: "Cancelled",
		},
		symptoms:    "Symptoms",
		treatment:   "Treatment",
		progress:    "Progress",
		imagesFmt:   "%d image(s)",
		placeholder: "(no content)",
	}
)

func labelsFor(ctx context.Context) *labelSet {
	if locale.IsEnglish(ctx) {
		return &enLabels
	}
	return &jaLabels
}

// StatusLabel renders a visit status in the request language. Unknown
// statuses are returned verbatim.
func StatusLabel(ctx context.Context, status model.VisitStatus) string {
	if label, ok := labelsFor(ctx).status[status]; ok {
		return label
	}
	return string(status)
}

// NormalizeVisit projects a visit onto the timeline.
func NormalizeVisit(ctx context.Context, v *model.VisitEvent) model.TimelineEntry {
	return model.TimelineEntry{
		ID:               v.ID,
		Date:             v.StartTime,
		Kind:             model.EntryKindAppointment,
		Content:          StatusLabel(ctx, v.Status),
		SecondaryContent: v.Memo,
		Status:           string(v.Status),
		Flags:            []string{},
	}
}

// NormalizeNote projects a note onto the timeline. Kind and flags come from
// the decoded metadata only; a note that was never decoded is decoded here.
func NormalizeNote(ctx context.Context, n *model.Note) model.TimelineEntry {
	kind, flags := n.Kind, n.Flags
	if kind == "" {
		meta := model.ParseNoteMetadata(n.MetadataJSON)
		kind, flags = meta.Kind, meta.Flags
	}
	if flags == nil {
		flags = []string{}
	}

	labels := labelsFor(ctx)
	details := joinDetails(labels, n)

	entry := model.TimelineEntry{
		ID:      n.ID,
		Date:    n.Date,
		Kind:    model.EntryKind(kind),
		Content: n.Content,
		Flags:   append([]string{}, flags...),
		Images:  n.Attachments,
		Version: n.Version,
	}

	if strings.TrimSpace(n.Content) != "" {
		if kind == model.NoteKindRecord {
			entry.SecondaryContent = details
		}
		return entry
	}

	switch {
	case kind == model.NoteKindRecord && details != "":
		entry.Content = details
	case kind == model.NoteKindImage && len(n.Attachments) > 0:
		entry.Content = fmt.Sprintf(labels.imagesFmt, len(n.Attachments))
	default:
		entry.Content = labels.placeholder
	}
	return entry
}

func joinDetails(labels *labelSet, n *model.Note) string {
	var parts []string
	for _, f := range []struct{ label, value string }{
		{labels.symptoms, n.Symptoms},
		{labels.treatment, n.Treatment},
		{labels.progress, n.Progress},
	} {
		if v := strings.TrimSpace(f.value); v != "" {
			parts = append(parts, f.label+": "+v)
		}
	}
	return strings.Join(parts, " / ")
}
