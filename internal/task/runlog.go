package task

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

type argsKey struct{}

// Args returns the registry arguments of the running task.
func Args(ctx context.Context) []string {
	args, _ := ctx.Value(argsKey{}).([]string)

	return args
}

// newRunLogger writes execution log lines of the form "[time] [Notice] message".
// Tasks reach it through zerolog.Ctx.
func newRunLogger(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:     w,
		NoColor: true,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
		FormatTimestamp: func(i any) string {
			s := fmt.Sprint(i)
			if t, err := time.Parse(zerolog.TimeFieldFormat, s); err == nil {
				s = t.Format(time.DateTime)
			}

			return "[" + s + "]"
		},
		FormatLevel: func(i any) string {
			switch fmt.Sprint(i) {
			case zerolog.LevelWarnValue:
				return "[Warning]"
			case zerolog.LevelErrorValue, zerolog.LevelFatalValue, zerolog.LevelPanicValue:
				return "[Error]"
			default:
				return "[Notice]"
			}
		},
	}

	return zerolog.New(cw).With().Timestamp().Logger()
}
