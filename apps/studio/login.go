package main

import "context"

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	if err := cli.session.Login(ctx, uname, pwd); err != nil {
		return err
	}
	ident := cli.session.Identity()
	cli.out.Printf("Signed in as %s <%s>\n", ident.Username, ident.Email)
	cli.out.Println("To keep the session, export:")
	cli.out.Printf("  %s_APITOKEN=%s\n", cli.conf.Env, cli.session.Token())
	return nil
}
