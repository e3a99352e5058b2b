package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/sekolahkita/portalguru/apps/api/echo"
	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/attendance"
	"github.com/sekolahkita/portalguru/core/backup"
	"github.com/sekolahkita/portalguru/core/class"
	"github.com/sekolahkita/portalguru/core/student"
	"github.com/sekolahkita/portalguru/core/user"
	emailsvc "github.com/sekolahkita/portalguru/services/email"
	logsvc "github.com/sekolahkita/portalguru/services/logger"
	"github.com/sekolahkita/portalguru/storage/database"
	sqlxrepos "github.com/sekolahkita/portalguru/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService()
	}
	return emailsvc.NewSendgridService(logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServerDeps(
	conf *core.Config,
	logger core.Logger,
	usrSvc user.Service,
	clsSvc class.Service,
	stdSvc student.Service,
	attSvc attendance.Service,
	backupSvc backup.Service,
	validate *validator.Validate,
	translator ut.Translator,
) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		ClassSvc:      clsSvc,
		StudentSvc:    stdSvc,
		AttendanceSvc: attSvc,
		BackupSvc:     backupSvc,
		Validate:      validate,
		Translator:    translator,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewClassRepository, dig.As(new(class.Repository))))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(sqlxrepos.NewAttendanceRepository, dig.As(new(attendance.Repository))))
	must(c.Provide(sqlxrepos.NewCollectionRepository, dig.As(new(backup.CollectionStore))))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(class.NewService))
	must(c.Provide(student.NewService, dig.As(new(student.Service), new(attendance.StudentDirectory))))
	must(c.Provide(attendance.NewService))
	must(c.Provide(backup.NewService))
	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	_ = dig.Visualize(c, os.Stdout)

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
