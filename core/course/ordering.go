package course

// Direction of a reorder action.
type Direction int

const (
	MoveUp   Direction = -1
	MoveDown Direction = 1
)

// MoveSection swaps the section at index with its neighbor in the given
// direction and renumbers all positions. Out-of-range moves return the
// input unchanged.
func MoveSection(sections []Section, index int, dir Direction) []Section {
	target := index + int(dir)
	if index < 0 || index >= len(sections) || target < 0 || target >= len(sections) {
		return sections
	}
	out := append([]Section(nil), sections...)
	out[index], out[target] = out[target], out[index]
	return RenumberSections(out)
}

// MoveChapter applies the same swap/renumber rule to one section's
// chapter list.
func MoveChapter(sections []Section, sectionIdx, chapterIdx int, dir Direction) []Section {
	if sectionIdx < 0 || sectionIdx >= len(sections) {
		return sections
	}
	chapters := sections[sectionIdx].Chapters
	target := chapterIdx + int(dir)
	if chapterIdx < 0 || chapterIdx >= len(chapters) || target < 0 || target >= len(chapters) {
		return sections
	}
	out := append([]Section(nil), sections...)
	chs := append([]Chapter(nil), chapters...)
	chs[chapterIdx], chs[target] = chs[target], chs[chapterIdx]
	out[sectionIdx].Chapters = renumberChapters(chs)
	return out
}

// RenumberSections rewrites positions to 1..N in array order, for the
// sections and each section's chapters. Positions are never settable
// directly; this runs after every structural mutation.
func RenumberSections(sections []Section) []Section {
	for i := range sections {
		sections[i].Position = i + 1
		sections[i].Chapters = renumberChapters(sections[i].Chapters)
	}
	return sections
}

func renumberChapters(chapters []Chapter) []Chapter {
	for i := range chapters {
		chapters[i].Position = i + 1
	}
	return chapters
}
