package main

import (
	"context"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/catalog"
)

func (cli *commandLine) catalogSvc() *catalog.Service {
	return catalog.NewService(cli.gw, cli.log, cli.notify)
}

func (cli *commandLine) browse(ctx context.Context, search string) error {
	summaries, err := cli.catalogSvc().Browse(ctx, catalog.Filter{Search: search})
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		cli.out.Println("No courses found.")
		return nil
	}
	for _, sum := range summaries {
		price := "free"
		if sum.Price != nil {
			price = core.FormatPrice(*sum.Price)
		}
		cli.out.Printf("%s  %-40s  %s  (%d chapters)\n", sum.ID, sum.Title, price, sum.ChapterCount)
	}
	return nil
}

func (cli *commandLine) profile(ctx context.Context) error {
	if err := cli.requireAuth(); err != nil {
		return err
	}
	prof, err := cli.catalogSvc().RefreshProfile(ctx)
	if err != nil {
		return err
	}
	cli.out.Printf("id:       %s\n", prof.Identity)
	cli.out.Printf("roles:    %v\n", prof.Roles)
	cli.out.Printf("enrolled: %v\n", prof.EnrolledCourseIDs)
	if prof.TutorPromotionRequested {
		cli.out.Println("tutor application pending")
	}
	return nil
}

func (cli *commandLine) enroll(ctx context.Context, courseID string) error {
	if err := cli.requireAuth(); err != nil {
		return err
	}
	return cli.catalogSvc().Enroll(ctx, courseID)
}

func (cli *commandLine) requestPromotion(ctx context.Context) error {
	if err := cli.requireAuth(); err != nil {
		return err
	}
	return cli.catalogSvc().RequestPromotion(ctx)
}
