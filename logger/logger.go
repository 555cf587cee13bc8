package logger

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type Field struct {
	Key   string
	Value interface{}
}

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
		},
	})
	l.SetLevel(logrus.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetOutput redirects log output; tests use it to capture entries.
func SetOutput(w io.Writer) { base.SetOutput(w) }

func entry(fields []Field, err error) *logrus.Entry {
	e := logrus.NewEntry(base)
	if len(fields) > 0 {
		lf := make(logrus.Fields, len(fields))
		for _, f := range fields {
			lf[f.Key] = f.Value
		}
		e = e.WithFields(lf)
	}
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

func Info(msg string, fields ...Field) {
	entry(fields, nil).Info(msg)
}

func Error(msg string, err error, fields ...Field) {
	entry(fields, err).Error(msg)
}

func Debug(msg string, fields ...Field) {
	entry(fields, nil).Debug(msg)
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, err error, fields ...Field) {
	entry(fields, err).Fatal(msg)
}

func FieldKV(key string, value interface{}) Field { return Field{Key: key, Value: value} }
