package testutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/kozi/core/course"
)

// DraftCourse returns a minimal draft course fixture.
func DraftCourse(id string, sections ...course.Section) course.Course {
	now := time.Now().UTC()
	return course.Course{
		ID:        id,
		Title:     "Swahili for Beginners",
		Status:    course.StatusDraft,
		Sections:  course.RenumberSections(sections),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SectionWithChapters builds a section with one chapter per title.
func SectionWithChapters(id, title string, chapterTitles ...string) course.Section {
	sec := course.Section{ID: id, Title: title}
	for i, chTitle := range chapterTitles {
		sec.Chapters = append(sec.Chapters, course.Chapter{
			ID:    id + "-ch" + string(rune('1'+i)),
			Title: chTitle,
		})
	}
	return sec
}

// ChapterWithVideo builds a chapter carrying a video in the given state.
func ChapterWithVideo(id, title string, status course.VideoStatus) course.Chapter {
	return course.Chapter{
		ID:    id,
		Title: title,
		Video: &course.Video{ID: "vid-" + id, Status: status},
	}
}

// PublishableCourse returns a draft with every chapter video READY.
func PublishableCourse(id string) course.Course {
	return DraftCourse(id, course.Section{
		ID:    "sec-1",
		Title: "Greetings",
		Chapters: []course.Chapter{
			ChapterWithVideo("chp-1", "Habari!", course.VideoReady),
			ChapterWithVideo("chp-2", "Introductions", course.VideoReady),
		},
	})
}

// JSONDiff fails the test with a readable diff when got and want do not
// marshal to the same JSON.
func JSONDiff(t *testing.T, got, want interface{}) {
	t.Helper()

	gotJSON, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		t.Fatalf("marshaling got: %v", err)
	}
	wantJSON, err := json.MarshalIndent(want, "", "  ")
	if err != nil {
		t.Fatalf("marshaling want: %v", err)
	}
	if string(gotJSON) == string(wantJSON) {
		return
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(wantJSON)),
		B:        difflib.SplitLines(string(gotJSON)),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if err != nil {
		t.Fatalf("diffing: %v", err)
	}
	t.Errorf("mismatch (-want +got):\n%s", diff)
}
