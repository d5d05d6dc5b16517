// Package fastlog implements a zero allocation, key=value line logger used
// for probe diagnostics.
package fastlog

import (
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"
)

type Logger struct {
	Out   io.Writer
	lines sync.Pool
}

const bufSize = 1024

var Std = &Logger{
	Out:   os.Stderr,
	lines: sync.Pool{New: func() interface{} { return new(Line) }},
}

type Line struct {
	buffer [bufSize]byte
	index  int
}

func NewLine(module string, msg string) *Line {
	return Std.NewLine(module, msg)
}

func (logger *Logger) NewLine(module string, msg string) *Line {
	l := logger.lines.Get().(*Line)
	l.index = 0
	return l.Module(module, msg)
}

// Module appends a new module segment, so a single line can carry entries
// from more than one module.
func (l *Line) Module(module string, msg string) *Line {
	copy(l.buffer[l.index:], "      :")
	copy(l.buffer[l.index:l.index+6], module)
	l.index = l.index + 7
	if msg != "" {
		l.index = l.index + copy(l.buffer[l.index:], ` msg="`)
		l.index = l.index + copy(l.buffer[l.index:], msg)
		l.buffer[l.index] = '"'
		l.index++
	}
	return l
}

func (l *Line) Write() error {
	l.buffer[l.index] = '\n'
	_, err := Std.Out.Write(l.buffer[:l.index+1])
	Std.lines.Put(l)
	return err
}

func (l *Line) appendName(name string) {
	l.buffer[l.index] = ' '
	l.index++
	l.index = l.index + copy(l.buffer[l.index:], name)
	l.buffer[l.index] = '='
	l.index++
}

func (l *Line) String(name string, value string) *Line {
	l.appendName(name)
	l.index = l.index + copy(l.buffer[l.index:], value)
	return l
}

func (l *Line) Int(name string, value int) *Line {
	l.appendName(name)
	l.index = l.index + copy(l.buffer[l.index:], strconv.Itoa(value))
	return l
}

func (l *Line) Uint(name string, value uint) *Line {
	l.appendName(name)
	l.index = l.index + copy(l.buffer[l.index:], strconv.FormatUint(uint64(value), 10))
	return l
}

func (l *Line) Uint16(name string, value uint16) *Line {
	return l.Uint(name, uint(value))
}

func (l *Line) Duration(name string, value time.Duration) *Line {
	return l.String(name, value.String())
}

func (l *Line) IP(name string, value net.IP) *Line {
	return l.String(name, value.String())
}

func (l *Line) MAC(name string, value net.HardwareAddr) *Line {
	return l.String(name, value.String())
}

func (l *Line) Error(value error) *Line {
	return l.String("error", value.Error())
}

var hexAscii = []byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'a', 'b', 'c', 'd', 'e', 'f'}

func (l *Line) writeHex(value byte) {
	l.buffer[l.index] = hexAscii[value>>4]
	l.index++
	l.buffer[l.index] = hexAscii[value&0x0f]
	l.index++
}

func (l *Line) ByteArray(name string, value []byte) *Line {
	l.appendName(name)
	l.buffer[l.index] = '['
	l.index++
	for _, v := range value {
		l.writeHex(v)
		l.buffer[l.index] = ' '
		l.index++
	}
	if len(value) > 0 {
		l.index--
	}
	l.buffer[l.index] = ']'
	l.index++
	return l
}
