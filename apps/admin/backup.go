package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sekolahkita/portalguru/core/backup"
	"github.com/sekolahkita/portalguru/core/user"
)

// backup writes everything the user owns to a JSON backup file.
func (cli *commandLine) backup(uname, out string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname}})
	if err != nil {
		return err
	}

	data, err := cli.backupSvc.Export(ctx, usr.ID)
	if err != nil {
		return err
	}

	if out == "" {
		out = backup.Filename(time.Now())
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return err
	}
	fmt.Println("Backup written to", out)
	return nil
}
