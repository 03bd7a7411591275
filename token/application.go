package token

import (
	"io"

	"github.com/miekg/pkcs11"
	"github.com/rs/zerolog"

	"github.com/niclabs/hwtoken/core"
	"github.com/niclabs/hwtoken/objects"
	"github.com/niclabs/hwtoken/storage"
)

// Application wires the configuration, the storage and the token together.
type Application struct {
	Database storage.ObjectStorage
	Token    *Token
	Config   *core.Config
	Log      zerolog.Logger

	logCloser io.Closer
}

func NewApplication(config *core.Config) (app *Application, err error) {
	log, logCloser, err := core.NewLogger(config.General)
	if err != nil {
		return
	}
	var db storage.ObjectStorage
	defer func() {
		if err == nil {
			return
		}
		if db != nil {
			_ = db.CloseStorage()
		}
		if logCloser != nil {
			_ = logCloser.Close()
		}
	}()

	db, err = storage.NewDatabase(config.Storage)
	if err != nil {
		err = objects.NewError("NewApplication", err.Error(), pkcs11.CKR_DEVICE_ERROR)
		return
	}
	if err = db.InitStorage(); err != nil {
		err = objects.NewError("NewApplication", err.Error(), pkcs11.CKR_DEVICE_ERROR)
		return
	}

	hwf := objects.NewHWFeature(objects.GenericObject{Log: log}, objects.HeapAllocator{}, log)
	token, err := NewToken(config.Token, db, hwf, log)
	if err != nil {
		return
	}
	if err = token.Load(); err != nil {
		return
	}

	app = &Application{
		Database:  db,
		Token:     token,
		Config:    config,
		Log:       log,
		logCloser: logCloser,
	}
	return
}

// Close finalizes the storage and the log file.
func (app *Application) Close() error {
	err := app.Database.CloseStorage()
	if app.logCloser != nil {
		if cerr := app.logCloser.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
