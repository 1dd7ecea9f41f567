package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/auth"
	"github.com/trezcool/kozi/core/course"
	apigw "github.com/trezcool/kozi/services/gateway"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotSignedIn = errors.New("not signed in; run: kozi-studio login -username USERNAME")
)

type commandLine struct {
	conf    *core.Config
	out     *log.Logger
	log     core.Logger
	notify  core.Notifier
	session *auth.Session
	gw      *apigw.HTTPGateway
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  login -username USERNAME                                 - sign in; the password is prompted next")
	fmt.Println("  courses [-search TEXT]                                   - browse the published catalog")
	fmt.Println("  profile                                                  - show the signed-in user's profile")
	fmt.Println("  enroll -course ID                                        - enroll in a published course")
	fmt.Println("  promote                                                  - request the tutor role")
	fmt.Println("  show -course ID                                          - show a course tree and its publish gate")
	fmt.Println("  edit -course ID [-title T] [-desc D] [-price CENTS]      - edit course metadata and save")
	fmt.Println("  add-section -course ID -title T                          - append a section and save")
	fmt.Println("  add-chapter -course ID -section ID -title T              - append a chapter and save")
	fmt.Println("  move-section -course ID -section ID -dir up|down         - move a section one step and save")
	fmt.Println("  move-chapter -course ID -chapter ID -dir up|down         - move a chapter one step and save")
	fmt.Println("  remove-section -course ID -section ID                    - remove a section and save")
	fmt.Println("  remove-chapter -course ID -chapter ID                    - remove a chapter and save")
	fmt.Println("  upload -course ID -section ID -chapter ID -file PATH     - upload a chapter video")
	fmt.Println("  publish -course ID                                       - submit a course for validation")
	fmt.Println("  delete -course ID                                        - delete an unlocked draft course")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()

	switch args[1] {
	case "login":
		cmd := flag.NewFlagSet("login", flag.ExitOnError)
		uname := cmd.String("username", "", "The user's username. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *uname, string(pwd))

	case "courses":
		cmd := flag.NewFlagSet("courses", flag.ExitOnError)
		search := cmd.String("search", "", "Filter by title or description.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.browse(ctx, *search)

	case "profile":
		return cli.profile(ctx)

	case "enroll":
		cmd := flag.NewFlagSet("enroll", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.enroll(ctx, *courseID)

	case "promote":
		return cli.requestPromotion(ctx)

	case "show":
		cmd := flag.NewFlagSet("show", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.show(ctx, *courseID)

	case "edit":
		cmd := flag.NewFlagSet("edit", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		title := cmd.String("title", "", "The new title.")
		desc := cmd.String("desc", "", "The new description.")
		price := cmd.Int("price", -1, "The new price in cents; 0 clears it.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.edit(ctx, *courseID, *title, *desc, *price)

	case "add-section":
		cmd := flag.NewFlagSet("add-section", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		title := cmd.String("title", "", "The section title.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" || *title == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addSection(ctx, *courseID, *title)

	case "add-chapter":
		cmd := flag.NewFlagSet("add-chapter", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		sectionID := cmd.String("section", "", "The section id.")
		title := cmd.String("title", "", "The chapter title.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" || *sectionID == "" || *title == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.addChapter(ctx, *courseID, *sectionID, *title)

	case "move-section":
		cmd := flag.NewFlagSet("move-section", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		sectionID := cmd.String("section", "", "The section id.")
		dir := cmd.String("dir", "", "up or down.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		direction, err := parseDirection(*dir)
		if *courseID == "" || *sectionID == "" || err != nil {
			cmd.Usage()
			return errHelp
		}
		return cli.moveSection(ctx, *courseID, *sectionID, direction)

	case "move-chapter":
		cmd := flag.NewFlagSet("move-chapter", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		chapterID := cmd.String("chapter", "", "The chapter id.")
		dir := cmd.String("dir", "", "up or down.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		direction, err := parseDirection(*dir)
		if *courseID == "" || *chapterID == "" || err != nil {
			cmd.Usage()
			return errHelp
		}
		return cli.moveChapter(ctx, *courseID, *chapterID, direction)

	case "remove-section":
		cmd := flag.NewFlagSet("remove-section", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		sectionID := cmd.String("section", "", "The section id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" || *sectionID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.removeSection(ctx, *courseID, *sectionID)

	case "remove-chapter":
		cmd := flag.NewFlagSet("remove-chapter", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		chapterID := cmd.String("chapter", "", "The chapter id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" || *chapterID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.removeChapter(ctx, *courseID, *chapterID)

	case "upload":
		cmd := flag.NewFlagSet("upload", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		sectionID := cmd.String("section", "", "The section id.")
		chapterID := cmd.String("chapter", "", "The chapter id.")
		file := cmd.String("file", "", "Path to the video file.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" || *sectionID == "" || *chapterID == "" || *file == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.upload(ctx, *courseID, *sectionID, *chapterID, *file)

	case "publish":
		cmd := flag.NewFlagSet("publish", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.publish(ctx, *courseID)

	case "delete":
		cmd := flag.NewFlagSet("delete", flag.ExitOnError)
		courseID := cmd.String("course", "", "The course id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.deleteCourse(ctx, *courseID)

	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks a yes/no question on the terminal; anything but an
// explicit yes declines.
func (cli *commandLine) confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = core.CleanString(answer, true /* lower */)
	return answer == "y" || answer == "yes"
}

func parseDirection(dir string) (course.Direction, error) {
	switch core.CleanString(dir, true /* lower */) {
	case "up":
		return course.MoveUp, nil
	case "down":
		return course.MoveDown, nil
	}
	return 0, fmt.Errorf("invalid direction %q", dir)
}

func (cli *commandLine) requireAuth() error {
	if !cli.session.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}
