package googletasks

import (
	"fmt"
	"strings"
	"time"

	"tarevity/internal/service"
)

// Google Tasks has no priority, review status or creation time, so they are
// kept in a trailer line at the end of the notes:
//
//	[tarevity priority=2 status=review created=2025-03-01T09:00:00Z]
const trailerPrefix = "[tarevity "

type noteMeta struct {
	description *string
	priority    service.Priority
	status      service.Status
	created     time.Time
}

func encodeNotes(desc *string, p service.Priority, s service.Status, created time.Time) string {
	trailer := fmt.Sprintf("%spriority=%d status=%s", trailerPrefix, int(p), s)
	if !created.IsZero() {
		trailer += " created=" + created.UTC().Format(time.RFC3339)
	}
	trailer += "]"
	if desc == nil || *desc == "" {
		return trailer
	}
	return *desc + "\n" + trailer
}

func decodeNotes(notes string) noteMeta {
	var meta noteMeta

	body := notes
	idx := strings.LastIndex(notes, trailerPrefix)
	if idx >= 0 && strings.HasSuffix(notes, "]") {
		body = strings.TrimSuffix(notes[:idx], "\n")
		fields := strings.Fields(strings.TrimSuffix(notes[idx+len(trailerPrefix):], "]"))
		for _, f := range fields {
			key, value, ok := strings.Cut(f, "=")
			if !ok {
				continue
			}
			switch key {
			case "priority":
				meta.priority, _ = service.ParsePriority(value)
			case "status":
				meta.status, _ = service.ParseStatus(value)
			case "created":
				meta.created, _ = time.Parse(time.RFC3339, value)
			}
		}
	}

	if body != "" {
		meta.description = &body
	}
	return meta
}
