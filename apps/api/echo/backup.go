package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/backup"
)

var errBackupFileRequired = "a backup file is required"

type backupApi struct {
	svc backup.Service
}

func registerBackupAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc backup.Service) {
	api := backupApi{svc: svc}

	bg := g.Group("/backups", jwt, teacherMiddleware())
	bg.GET("/export", api.export)
	bg.POST("/validate", api.validateFile)
	bg.POST("/import", api.importFile)
}

// Handlers

// export downloads everything the caller owns as a JSON backup file. Admins
// included: a backup always covers the calling account, never somebody else's.
func (api *backupApi) export(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	blob, err := api.svc.Export(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "exporting backup")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", backup.Filename(time.Now())))
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationJSON, blob)
}

func (api *backupApi) validateFile(ctx echo.Context) error {
	blob, err := readUpload(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, backup.Validate(blob))
}

func (api *backupApi) importFile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	blob, err := readUpload(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.Import(ctx.Request().Context(), bytes.NewReader(blob), claims.Subject); err != nil {
		switch errors.Cause(err) {
		case backup.ErrUnreadableFile, backup.ErrInvalidFormat, backup.ErrOwnershipMismatch:
			return core.NewValidationError(nil, core.FieldError{Field: "file", Error: err.Error()})
		}
		return errors.Wrap(err, "importing backup")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Backup imported."})
}

// readUpload returns the contents of the request's "file" multipart field.
func readUpload(ctx echo.Context) ([]byte, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: errBackupFileRequired})
	}
	src, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	blob, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}
	return blob, nil
}
