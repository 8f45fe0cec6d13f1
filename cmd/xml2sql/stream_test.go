// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"path/filepath"
	"testing"
)

func TestDetectCodec(t *testing.T) {
	tests := map[string]codec{
		"dump.xml":     codecPlain,
		"dump.xml.gz":  codecGzip,
		"dump.xml.bz2": codecBzip2,
		"dump.xml.zst": codecZstd,
		"dump.xml.xz":  codecXz,
		"dump.xml.br":  codecBrotli,
	}
	for path, want := range tests {
		if got := detectCodec(path); got != want {
			t.Errorf("detectCodec(%q): got %v, want %v", path, got, want)
		}
	}
}

func TestOpenWriteOpenReadRoundTrip(t *testing.T) {
	content := []byte("<mediawiki><page><title>Roundtrip</title></page></mediawiki>")
	for _, name := range []string{"dump.xml", "dump.xml.gz", "dump.xml.bz2", "dump.xml.zst", "dump.xml.xz", "dump.xml.br"} {
		name := name
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, name)

			w, err := openWrite(path)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := w.Write(content); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			r, err := openRead(path)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Close()
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != string(content) {
				t.Errorf("%s: round trip mismatch: got %q, want %q", name, got, content)
			}
		})
	}
}

func TestOpenWriteRefusesUnreadableDir(t *testing.T) {
	if _, err := openWrite(filepath.Join(t.TempDir(), "missing-subdir", "out.xml")); err == nil {
		t.Fatal("expected an error opening a file in a nonexistent directory")
	}
}

func TestOpenReadMissingFile(t *testing.T) {
	_, err := openRead(filepath.Join(t.TempDir(), "does-not-exist.xml"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	var xe *xmlsqlError
	if !asXmlsqlError(err, &xe) || xe.Kind != KindIO {
		t.Errorf("expected KindIO, got %v", err)
	}
}
