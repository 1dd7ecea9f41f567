package main

import (
	"context"
	"fmt"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/course"
)

// openBuilder starts a one-shot authoring session and loads the course.
// Callers must Close it.
func (cli *commandLine) openBuilder(ctx context.Context, courseID string) (*course.Builder, error) {
	if err := cli.requireAuth(); err != nil {
		return nil, err
	}
	b := course.NewBuilder(courseID, cli.gw, cli.log, cli.notify, course.Options{Confirm: cli.confirm})
	if err := b.Refresh(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (cli *commandLine) show(ctx context.Context, courseID string) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	crs := b.Course()
	price := "free"
	if crs.Price != nil {
		price = core.FormatPrice(*crs.Price)
	}
	cli.out.Printf("%s  [%s]  %s\n", crs.Title, crs.Status, price)
	if crs.Description != "" {
		cli.out.Println(crs.Description)
	}
	for _, sec := range crs.Sections {
		cli.out.Printf("%2d. %s  (%s)\n", sec.Position, sec.Title, sec.ID)
		for _, ch := range sec.Chapters {
			video := "no video"
			if ch.Video != nil {
				video = string(ch.Video.Status)
			}
			cli.out.Printf("    %2d.%d %s  (%s)  [%s]\n", sec.Position, ch.Position, ch.Title, ch.ID, video)
		}
	}

	gate := b.Gate()
	if gate.CanPublish {
		cli.out.Println("ready to publish")
	} else if b.Locked() {
		cli.out.Println("locked for editing")
	} else {
		cli.out.Printf(
			"not publishable: %d chapters, %d without video, %d videos not ready\n",
			gate.TotalChapters, gate.MissingVideoChapters, gate.NotReadyVideos,
		)
	}
	return nil
}

func (cli *commandLine) edit(ctx context.Context, courseID, title, desc string, price int) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	crs := b.Course()
	input := course.MetaInput{Title: crs.Title, Description: crs.Description, Price: crs.Price}
	if title != "" {
		input.Title = title
	}
	if desc != "" {
		input.Description = desc
	}
	switch {
	case price == 0:
		input.Price = nil
	case price > 0:
		input.Price = &price
	}
	if err := b.UpdateMeta(input); err != nil {
		return err
	}
	return b.HandleSave(ctx)
}

func (cli *commandLine) addSection(ctx context.Context, courseID, title string) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	if _, err := b.AddSection(title); err != nil {
		return err
	}
	return b.HandleSave(ctx)
}

func (cli *commandLine) addChapter(ctx context.Context, courseID, sectionID, title string) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	if _, err := b.AddChapter(sectionID, title); err != nil {
		return err
	}
	return b.HandleSave(ctx)
}

func (cli *commandLine) moveSection(ctx context.Context, courseID, sectionID string, dir course.Direction) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.MoveSection(sectionID, dir); err != nil {
		return err
	}
	return b.HandleSave(ctx)
}

func (cli *commandLine) moveChapter(ctx context.Context, courseID, chapterID string, dir course.Direction) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.MoveChapter(chapterID, dir); err != nil {
		return err
	}
	return b.HandleSave(ctx)
}

func (cli *commandLine) removeSection(ctx context.Context, courseID, sectionID string) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.RemoveSection(sectionID); err != nil {
		return err
	}
	return b.HandleSave(ctx)
}

func (cli *commandLine) removeChapter(ctx context.Context, courseID, chapterID string) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.RemoveChapter(chapterID); err != nil {
		return err
	}
	return b.HandleSave(ctx)
}

func (cli *commandLine) publish(ctx context.Context, courseID string) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	return b.HandlePublish(ctx)
}

func (cli *commandLine) deleteCourse(ctx context.Context, courseID string) error {
	b, err := cli.openBuilder(ctx, courseID)
	if err != nil {
		return err
	}
	defer b.Close()

	if !cli.confirm(fmt.Sprintf("Delete course %q? This cannot be undone.", b.Course().Title)) {
		return nil
	}
	return b.Delete(ctx)
}
