// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestInsertBatcherSingleStatement(t *testing.T) {
	var buf bytes.Buffer
	b := newInsertBatcher(&buf, "page", 0)
	if err := b.AddRow("(1,2,3)"); err != nil {
		t.Fatal(err)
	}
	if err := b.AddRow("(4,5,6)"); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	want := "INSERT INTO `page` VALUES (1,2,3),(4,5,6);\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestInsertBatcherSplitsOnCap(t *testing.T) {
	var buf bytes.Buffer
	b := newInsertBatcher(&buf, "revision", 20) // tiny cap forces a split
	rows := []string{"(1,1,1)", "(2,2,2)", "(3,3,3)", "(4,4,4)"}
	for _, r := range rows {
		if err := b.AddRow(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	statements := strings.Count(buf.String(), "INSERT INTO")
	if statements < 2 {
		t.Errorf("expected the cap to force multiple statements, got %d: %s", statements, buf.String())
	}
	for _, r := range rows {
		if !strings.Contains(buf.String(), r) {
			t.Errorf("output missing row %s", r)
		}
	}
}

func TestInsertBatcherEmptyClose(t *testing.T) {
	var buf bytes.Buffer
	b := newInsertBatcher(&buf, "text", 0)
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("Close on an empty batcher wrote %q, want nothing", buf.String())
	}
}
