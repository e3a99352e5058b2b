package main

import (
	"context"
	"os"

	"github.com/sekolahkita/portalguru/core/user"
)

// restore merges a backup file into the user's existing data.
func (cli *commandLine) restore(uname, file string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname}})
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	return cli.backupSvc.Import(ctx, f, usr.ID)
}
