package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sekolahkita/portalguru/core/backup"
	"github.com/sekolahkita/portalguru/core/user"
	inmemdb "github.com/sekolahkita/portalguru/storage/database/inmem"
	"github.com/sekolahkita/portalguru/tests"
)

var (
	usrRepo  user.Repository
	colStore backup.CollectionStore
)

func setup(t *testing.T) *commandLine {
	// set up DB & repos; migrations are always mocked so a throwaway
	// sqlmock handle stands in for the real connection
	mockDB, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })

	db := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	colStore = inmemdb.NewCollectionStore(db)

	// start CLI
	return &commandLine{
		db:        sqlx.NewDb(mockDB, "sqlmock"),
		usrRepo:   usrRepo,
		backupSvc: backup.NewService(colStore),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "kartini"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "kartini", "-email", "kartini@test.cd"}, extra: extra{pwd: "lol"}},
		{name: "create admin", args: []string{"adduser", "-username", "dewantara", "-email", "dewantara@test.cd", "-admin"}, extra: extra{pwd: "lol"}},
		{name: "update existing", args: []string{"adduser", "-username", "kartini"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			extra := tt.extra.(extra)
			usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: tt.args[2]})
			if err != nil {
				t.Fatalf("GetUser() failed: %v", err)
			}
			if !usr.Active() {
				t.Error("user is not active")
			}
			if err := usr.CheckPassword(extra.pwd); err != nil {
				t.Errorf("CheckPassword() failed: %v", err)
			}
			if usr.Username == "dewantara" && !usr.IsAdmin() {
				t.Error("user is not admin")
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_backupRestore(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, usrRepo, "Ibu Guru", "ibuguru", "ibu@test.cd", "mdr", user.TeacherRoles, true)
	other := testutil.CreateUser(t, usrRepo, "Pak Guru", "pakguru", "pak@test.cd", "mdr", user.TeacherRoles, true)

	seed := map[string][]backup.Row{
		backup.CollectionClasses:    {{"id": "c1", "user_id": usr.ID, "name": "Kelas 7A", "academic_year": "2025/2026"}},
		backup.CollectionStudents:   {{"id": "s1", "user_id": usr.ID, "class_id": "c1", "full_name": "Budi Santoso"}},
		backup.CollectionQuizPoints: {{"id": "q1", "user_id": usr.ID, "student_id": "s1", "points": float64(10)}},
	}
	for name, rows := range seed {
		if err := colStore.UpsertRows(ctx, name, rows); err != nil {
			t.Fatalf("UpsertRows(%s) failed: %v", name, err)
		}
	}

	out := filepath.Join(t.TempDir(), "backup.json")

	tests := []cliTest{
		{name: "backup: no args", args: []string{"backup"}, wantErr: errHelp},
		{name: "backup: user not found", args: []string{"backup", "-username", "lol"}, wantErr: user.ErrNotFound},
		{name: "restore: no file", args: []string{"restore", "-username", usr.Username}, wantErr: errHelp},
		{name: "restore: user not found", args: []string{"restore", "-username", "lol", "-file", out}, wantErr: user.ErrNotFound},
		{name: "restore: missing file", args: []string{"restore", "-username", usr.Username, "-file", "nope.json"}, wantErrStr: "open nope.json: no such file or directory"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				t.Fatal("cli.run() expected an error")
			}
			if tt.wantErr != nil {
				if errors.Cause(err) != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		})
	}

	t.Run("backup", func(t *testing.T) {
		if err := cli.run([]string{"admin", "backup", "-username", usr.Email, "-out", out}); err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}

		raw, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("reading backup file failed: %v", err)
		}
		var env backup.Envelope
		if err = json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("parsing backup file failed: %v", err)
		}
		if env.Version != backup.FormatVersion {
			t.Errorf("version = %d, want %d", env.Version, backup.FormatVersion)
		}
		for name, rows := range seed {
			if got := len(env.Data[name]); got != len(rows) {
				t.Errorf("%s: got %d rows, want %d", name, got, len(rows))
			}
		}
	})

	t.Run("restore into another account is refused", func(t *testing.T) {
		err := cli.run([]string{"admin", "restore", "-username", other.Username, "-file", out})
		if errors.Cause(err) != backup.ErrOwnershipMismatch {
			t.Errorf("cli.run() error = %v, wantErr %v", err, backup.ErrOwnershipMismatch)
		}

		classes, err := colStore.SelectOwned(ctx, backup.CollectionClasses, other.ID)
		if err != nil {
			t.Fatalf("SelectOwned() failed: %v", err)
		}
		if len(classes) != 0 {
			t.Errorf("got %d classes for %s, want none", len(classes), other.Username)
		}
	})

	t.Run("restore", func(t *testing.T) {
		if err := cli.run([]string{"admin", "restore", "-username", usr.Username, "-file", out}); err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}

		students, err := colStore.SelectOwned(ctx, backup.CollectionStudents, usr.ID)
		if err != nil {
			t.Fatalf("SelectOwned() failed: %v", err)
		}
		if len(students) != 1 {
			t.Errorf("got %d students, want 1", len(students))
		}
	})
}
