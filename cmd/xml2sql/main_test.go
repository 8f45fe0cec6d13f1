// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func init() {
	// run() logs through the package-level logger; tests never want that
	// going to the real stderr.
	logger = log.New(&bytes.Buffer{}, "", 0)
}

func writeTestDump(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	stubs := writeTestDump(t, dir, "stub.xml", `<mediawiki><page><title>Main Page</title><ns>0</ns><id>1</id>
		<revision><id>100</id><timestamp>2020-01-02T03:04:05Z</timestamp>
		<contributor><username>Alice</username><id>7</id></contributor>
		<text bytes="5" id="1" /></revision></page></mediawiki>`)
	text := writeTestDump(t, dir, "content.xml", `<mediawiki><page><title>Main Page</title><ns>0</ns><id>1</id>
		<revision><id>100</id><timestamp>2020-01-02T03:04:05Z</timestamp>
		<contributor><username>Alice</username><id>7</id></contributor>
		<text bytes="5" id="1">hello</text></revision></page></mediawiki>`)

	prefix := filepath.Join(dir, "out")
	err := run(runOptions{
		stubsPath: stubs,
		textPath:  text,
		sqlPrefix: prefix,
		mwVersion: "1.29",
		startID:   1,
		batchCap:  defaultBatchCap,
		desync:    defaultDesyncLimit,
	})
	if err != nil {
		t.Fatal(err)
	}

	pageSQL, err := os.ReadFile(prefix + "-page.sql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(pageSQL), "'Main Page'") {
		t.Errorf("page.sql missing title: %s", pageSQL)
	}

	revSQL, err := os.ReadFile(prefix + "-revision.sql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(revSQL), "100") {
		t.Errorf("revision.sql missing rev_id: %s", revSQL)
	}

	textSQL, err := os.ReadFile(prefix + "-text.sql")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(textSQL), "'hello'") {
		t.Errorf("text.sql missing content: %s", textSQL)
	}
}

func TestRunRefusesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	stubs := writeTestDump(t, dir, "stub.xml", `<mediawiki></mediawiki>`)
	text := writeTestDump(t, dir, "content.xml", `<mediawiki></mediawiki>`)

	prefix := filepath.Join(dir, "out")
	writeTestDump(t, dir, "out-page.sql", "INSERT INTO `page` VALUES (1,2,3);\n")

	err := run(runOptions{
		stubsPath: stubs,
		textPath:  text,
		sqlPrefix: prefix,
		mwVersion: "1.29",
		startID:   1,
	})
	if err == nil {
		t.Fatal("expected an error when an output file already exists and is non-empty")
	}
	var xe *xmlsqlError
	if !asXmlsqlError(err, &xe) || xe.Kind != KindUsage {
		t.Errorf("expected KindUsage, got %v", err)
	}
}

func TestRunRequiresFlags(t *testing.T) {
	err := run(runOptions{})
	if err == nil {
		t.Fatal("expected an error when required paths are missing")
	}
}
