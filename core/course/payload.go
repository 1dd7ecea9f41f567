package course

import "github.com/volatiletech/null/v8"

type (
	// PartialCourse is a sparse course edit. A nil pointer means "leave
	// this field untouched"; an invalid null value means "clear it".
	// The Sections pointer carries the same distinction: nil means the
	// structure is not part of this edit, a pointer to an empty slice
	// means "remove every section".
	PartialCourse struct {
		Title       *string
		Description *null.String
		Price       *null.Int
		Sections    *[]Section
	}

	// UpdateRequest is the wire body of a course update. A field absent
	// from the PartialCourse never appears in the marshalled JSON, so
	// the server leaves it alone.
	UpdateRequest struct {
		Title       *string          `json:"title,omitempty"`
		Description *null.String     `json:"description,omitempty"`
		Price       *null.Int        `json:"price,omitempty"`
		Sections    *[]SectionUpdate `json:"sections,omitempty"`
	}

	SectionUpdate struct {
		ID       string          `json:"id,omitempty"`
		Title    string          `json:"title"`
		Position int             `json:"position"`
		Chapters []ChapterUpdate `json:"chapters"`
	}

	ChapterUpdate struct {
		ID       string `json:"id,omitempty"`
		Title    string `json:"title"`
		Position int    `json:"position"`
	}
)

// MapPartialToUpdateRequest translates a partial edit into the minimal
// wire payload. Sending "sections": [] wipes a course's whole structure
// server-side, so the sections key may only ever appear when the
// partial explicitly carries one. Client-local ids are stripped so the
// server treats those entries as creations.
func MapPartialToUpdateRequest(partial PartialCourse) UpdateRequest {
	req := UpdateRequest{
		Title:       partial.Title,
		Description: partial.Description,
		Price:       partial.Price,
	}
	if partial.Sections == nil {
		return req
	}

	sections := make([]SectionUpdate, 0, len(*partial.Sections))
	for _, sec := range *partial.Sections {
		su := SectionUpdate{
			Title:    sec.Title,
			Position: sec.Position,
			Chapters: make([]ChapterUpdate, 0, len(sec.Chapters)),
		}
		if sec.ID != "" && !IsClientKey(sec.ID) {
			su.ID = sec.ID
		}
		for _, ch := range sec.Chapters {
			cu := ChapterUpdate{Title: ch.Title, Position: ch.Position}
			if ch.ID != "" && !IsClientKey(ch.ID) {
				cu.ID = ch.ID
			}
			su.Chapters = append(su.Chapters, cu)
		}
		sections = append(sections, su)
	}
	req.Sections = &sections
	return req
}
