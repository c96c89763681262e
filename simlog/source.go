// Package simlog reads textual simulator logs line by line and extracts
// `label: value` fields from them.
package simlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const maxLineLength = 16 << 20

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Line is a single line of the log. Num starts at 1.
type Line struct {
	Num  int
	Text string
}

// A Source provides the lines of a log in file order.
type Source interface {
	// Next returns the next line. It returns false when the input is
	// exhausted or reading failed.
	Next() (Line, bool)

	// Err returns the first non-EOF error met while reading.
	Err() error
}

// Scanner is a Source that reads from an io.Reader.
type Scanner struct {
	sc  *bufio.Scanner
	num int
}

// NewScanner creates a Scanner that reads lines from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	return &Scanner{sc: sc}
}

// NewStringSource creates a Source over the lines of s.
func NewStringSource(s string) *Scanner {
	return NewScanner(strings.NewReader(s))
}

// Next returns the next line.
func (s *Scanner) Next() (Line, bool) {
	if !s.sc.Scan() {
		return Line{}, false
	}

	s.num++

	return Line{
		Num:  s.num,
		Text: strings.TrimSuffix(s.sc.Text(), "\r"),
	}, true
}

// Err returns the error that stopped the scan, if any.
func (s *Scanner) Err() error {
	return s.sc.Err()
}

// Lines returns the number of lines read so far.
func (s *Scanner) Lines() int {
	return s.num
}

// File is a log file opened for scanning.
type File struct {
	*Scanner

	Path        string
	Compression string

	file    *os.File
	closers []func() error
}

// Open opens the log at path. Logs compressed with gzip or zstd are
// decompressed on the fly.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	lf := &File{Path: path, file: f, Compression: "none"}

	br := bufio.NewReader(f)
	head, _ := br.Peek(len(zstdMagic))

	var r io.Reader = br

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip log %s: %w", path, err)
		}

		lf.Compression = "gzip"
		lf.closers = append(lf.closers, gz.Close)
		r = gz
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd log %s: %w", path, err)
		}

		lf.Compression = "zstd"
		lf.closers = append(lf.closers, func() error {
			dec.Close()
			return nil
		})
		r = dec
	}

	lf.Scanner = NewScanner(r)

	return lf, nil
}

// Close releases the decompressor, if any, and the underlying file.
func (f *File) Close() error {
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c())
	}

	errs = append(errs, f.file.Close())

	return errors.Join(errs...)
}
