package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core/upload"
	uploadsvc "github.com/trezcool/kozi/services/upload"
)

func (cli *commandLine) upload(ctx context.Context, courseID, sectionID, chapterID, path string) error {
	if err := cli.requireAuth(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening video file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "reading video file info")
	}

	svc := upload.NewService(cli.gw, uploadsvc.NewHTTPTransport(cli.log), cli.log)
	vid, err := svc.Upload(ctx, courseID, sectionID, chapterID, f, info.Size(), func(sent, total int64) {
		fmt.Printf("\ruploading... %d%%", sent*100/total)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	cli.out.Printf("Video %s uploaded; status: %s\n", vid.ID, vid.Status)
	return nil
}
