// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"os"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// codec identifies the compression format chosen by a stream's file
// extension, per spec.md §3's StreamSpec.
type codec int

const (
	codecPlain codec = iota
	codecGzip
	codecBzip2
	codecZstd
	codecXz
	codecBrotli
)

func detectCodec(path string) codec {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return codecGzip
	case strings.HasSuffix(path, ".bz2"):
		return codecBzip2
	case strings.HasSuffix(path, ".zst"):
		return codecZstd
	case strings.HasSuffix(path, ".xz"):
		return codecXz
	case strings.HasSuffix(path, ".br"):
		return codecBrotli
	default:
		return codecPlain
	}
}

// openRead opens path for sequential reading, decompressing transparently
// per its extension. The returned ReadCloser's Close releases both the
// decompressor and the underlying file.
func openRead(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr(KindIO, "opening "+path, err)
	}

	switch detectCodec(path) {
	case codecGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, wrapErr(KindCodec, "gzip header in "+path, err)
		}
		return &joinCloser{Reader: gz, closers: []func() error{gz.Close, f.Close}}, nil

	case codecBzip2:
		bz, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
		if err != nil {
			f.Close()
			return nil, wrapErr(KindCodec, "bzip2 header in "+path, err)
		}
		return &joinCloser{Reader: bz, closers: []func() error{bz.Close, f.Close}}, nil

	case codecZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, wrapErr(KindCodec, "zstd header in "+path, err)
		}
		return &joinCloser{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			f.Close,
		}}, nil

	case codecXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, wrapErr(KindCodec, "xz header in "+path, err)
		}
		return &joinCloser{Reader: xr, closers: []func() error{f.Close}}, nil

	case codecBrotli:
		br := brotli.NewReader(f)
		return &joinCloser{Reader: br, closers: []func() error{f.Close}}, nil

	default:
		return f, nil
	}
}

// openWrite opens path for sequential writing, truncating any existing
// file, compressing per its extension. Close flushes and closes both the
// compressor and the underlying file, in that order.
func openWrite(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, wrapErr(KindIO, "creating "+path, err)
	}

	switch detectCodec(path) {
	case codecGzip:
		gw := gzip.NewWriter(f)
		return &joinWriteCloser{Writer: gw, closers: []func() error{gw.Close, f.Close}}, nil

	case codecBzip2:
		bw, err := bzip2.NewWriter(f, &bzip2.WriterConfig{Level: 9})
		if err != nil {
			f.Close()
			return nil, wrapErr(KindCodec, "bzip2 writer for "+path, err)
		}
		return &joinWriteCloser{Writer: bw, closers: []func() error{bw.Close, f.Close}}, nil

	case codecZstd:
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			f.Close()
			return nil, wrapErr(KindCodec, "zstd writer for "+path, err)
		}
		return &joinWriteCloser{Writer: zw, closers: []func() error{zw.Close, f.Close}}, nil

	case codecXz:
		xw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, wrapErr(KindCodec, "xz writer for "+path, err)
		}
		return &joinWriteCloser{Writer: xw, closers: []func() error{xw.Close, f.Close}}, nil

	case codecBrotli:
		bw := brotli.NewWriter(f)
		return &joinWriteCloser{Writer: bw, closers: []func() error{bw.Close, f.Close}}, nil

	default:
		return f, nil
	}
}

// joinCloser glues a decompressor and its backing file into a single
// io.ReadCloser, closing both on Close and returning the first error.
type joinCloser struct {
	io.Reader
	closers []func() error
}

func (j *joinCloser) Close() error {
	var first error
	for _, c := range j.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type joinWriteCloser struct {
	io.Writer
	closers []func() error
}

func (j *joinWriteCloser) Close() error {
	var first error
	for _, c := range j.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
