package main

import (
	"github.com/pressly/goose/v3"

	"github.com/sekolahkita/portalguru/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	goose.SetBaseFS(appfs.FS)
	return gooseRunFunc(args[0], cli.db.DB, "migrations", arguments...)
}
