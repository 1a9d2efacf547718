package gormlog

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestLogger(level gormlogger.LogLevel, slow time.Duration) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	zl := zerolog.New(&buf).Level(zerolog.TraceLevel)

	return New(level, slow, &zl), &buf
}

func TestTrace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT 1", 1 }

	testCases := []struct {
		name    string
		level   gormlogger.LogLevel
		slow    time.Duration
		begin   time.Time
		err     error
		wantLog string
	}{
		{
			name:  "silent logs nothing",
			level: gormlogger.Silent,
			begin: time.Now(),
			err:   errors.New("boom"),
		},
		{
			name:    "error is logged",
			level:   gormlogger.Error,
			begin:   time.Now(),
			err:     errors.New("boom"),
			wantLog: `"level":"error"`,
		},
		{
			name:  "record not found is not logged as error",
			level: gormlogger.Error,
			begin: time.Now(),
			err:   gorm.ErrRecordNotFound,
		},
		{
			name:    "slow query warns",
			level:   gormlogger.Warn,
			slow:    time.Millisecond,
			begin:   time.Now().Add(-time.Second),
			wantLog: `"level":"warn"`,
		},
		{
			name:  "fast query at warn is quiet",
			level: gormlogger.Warn,
			slow:  time.Hour,
			begin: time.Now(),
		},
		{
			name:    "info logs every statement",
			level:   gormlogger.Info,
			begin:   time.Now(),
			wantLog: `"sql":"SELECT 1"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, buf := newTestLogger(tc.level, tc.slow)
			l.Trace(context.Background(), tc.begin, sql, tc.err)

			if tc.wantLog == "" {
				assert.Empty(t, buf.String())
				return
			}

			assert.Contains(t, buf.String(), tc.wantLog)
		})
	}
}

func TestLogMode(t *testing.T) {
	l, buf := newTestLogger(gormlogger.Silent, 0)

	loud := l.LogMode(gormlogger.Info)
	loud.Info(context.Background(), "hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")

	buf.Reset()
	l.Info(context.Background(), "quiet")
	assert.Empty(t, buf.String(), "LogMode must not change the original logger")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, ParseLevel("silent"))
	assert.Equal(t, gormlogger.Error, ParseLevel("error"))
	assert.Equal(t, gormlogger.Info, ParseLevel("info"))
	assert.Equal(t, gormlogger.Warn, ParseLevel("warn"))
	assert.Equal(t, gormlogger.Warn, ParseLevel(""))
}
