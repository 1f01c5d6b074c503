package logger

import (
	"io"
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log discards everything until Init is called.
var Log = log.New(io.Discard, "", log.LstdFlags)

var sink *lumberjack.Logger

func Init(logFilePath string) error {
	sink = &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	// lumberjack opens lazily; write once so a bad path fails here.
	if _, err := sink.Write([]byte{}); err != nil {
		return err
	}

	Log = log.New(sink, "", log.LstdFlags|log.Lmicroseconds)
	Log.Println("Logger initialized.")
	return nil
}

func Close() error {
	if sink == nil {
		return nil
	}
	return sink.Close()
}
