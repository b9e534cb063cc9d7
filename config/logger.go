package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"bookview/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// lowestLevel maps configured level name, "none" disables logger.
func lowestLevel(name string) (zapcore.Level, bool) {
	switch name {
	case "debug":
		return zapcore.DebugLevel, true
	case "normal":
		return zapcore.InfoLevel, true
	}
	return zapcore.InvalidLevel, false
}

// terminalEncoderConfig colors levels and drops timestamps when stream is
// a terminal.
func terminalEncoderConfig(stream *os.File) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	}
	return ec
}

// console splits output: errors go to stderr, the rest to stdout.
func (conf LoggerConfig) console() zapcore.Core {
	lowest, ok := lowestLevel(conf.Level)
	if !ok {
		return zapcore.NewNopCore()
	}
	out := zapcore.NewCore(zapcore.NewConsoleEncoder(terminalEncoderConfig(os.Stdout)), zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lowest <= lvl && lvl < zapcore.ErrorLevel
		}))
	errs := zapcore.NewCore(plainErrors{zapcore.NewConsoleEncoder(terminalEncoderConfig(os.Stderr))}, zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		}))
	return zapcore.NewTee(errs, out)
}

func openLog(name, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(name, flags, 0644)
}

// file opens file logger. When destination is not writable log goes to a
// temporary file and its name is returned.
func (conf LoggerConfig) file() (core zapcore.Core, redirected string, err error) {
	lowest, ok := lowestLevel(conf.Level)
	if !ok {
		return zapcore.NewNopCore(), "", nil
	}

	// crash output of the runtime goes next to the log
	if ef, err := openLog(PanicLogName(conf.Destination), conf.Mode); err == nil {
		debug.SetCrashOutput(ef, debug.CrashOptions{})
		ef.Close()
	}

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	level := zap.NewAtomicLevelAt(lowest)

	f, err := openLog(conf.Destination, conf.Mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err != nil {
			return nil, "", fmt.Errorf("unable to access file log destination (%s): %w", conf.Destination, err)
		}
		redirected = f.Name()
	}
	return zapcore.NewCore(enc, zapcore.Lock(f), level), redirected, nil
}

// Prepare returns our standard logger - configured zap logger for use by the program.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	fileCore, redirected, err := conf.FileLogger.file()
	if err != nil {
		return nil, err
	}

	log := zap.New(zapcore.NewTee(conf.ConsoleLogger.console(), fileCore), zap.AddCaller())
	if len(redirected) != 0 {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log.Named(misc.GetAppName()), nil
}

// PanicLogName returns name of the crash output file kept next to the log file.
func PanicLogName(destination string) string {
	return filepath.Join(filepath.Dir(destination), misc.GetAppName()+"-panic.log")
}

// plainErrors keeps console error output short: errorVerbose with stack
// traces only goes to file log.
type plainErrors struct {
	zapcore.Encoder
}

func (c plainErrors) Clone() zapcore.Encoder {
	return plainErrors{c.Encoder.Clone()}
}

func (c plainErrors) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	plain := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			f.Interface = errors.New(f.Interface.(error).Error())
		}
		plain = append(plain, f)
	}
	return c.Encoder.EncodeEntry(ent, plain)
}
