// SPDX-License-Identifier: MIT

package main

import (
	"strings"
	"testing"
)

func TestPolicyForSelectsLatestApplicable(t *testing.T) {
	v, err := policyFor("1.20")
	if err != nil {
		t.Fatal(err)
	}
	if v.MinVersion != "1.19" {
		t.Errorf("policyFor(1.20): got variant %s, want 1.19", v.MinVersion)
	}
}

func TestPolicyForExactMatch(t *testing.T) {
	v, err := policyFor("1.21")
	if err != nil {
		t.Fatal(err)
	}
	if v.MinVersion != "1.21" {
		t.Errorf("policyFor(1.21): got variant %s, want 1.21", v.MinVersion)
	}
}

func TestPolicyForUnsupported(t *testing.T) {
	_, err := policyFor("1.0")
	if err == nil {
		t.Fatal("expected an error for a version older than every known variant")
	}
	var xe *xmlsqlError
	if !asXmlsqlError(err, &xe) || xe.Kind != KindSchemaUnsupported {
		t.Errorf("expected KindSchemaUnsupported, got %v", err)
	}
}

func TestFormatPageRowAcrossVariants(t *testing.T) {
	p := &Page{ID: 1, Namespace: 0, Title: "Foo", LatestRevID: 5, Len: 12}

	v15, err := policyFor("1.5")
	if err != nil {
		t.Fatal(err)
	}
	row, err := formatPageRow(p, v15)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(row, "(1,0,'Foo'") {
		t.Errorf("1.5 page row: got %s", row)
	}
	if !strings.Contains(row, "0,0,''") { // page_is_new, page_random, page_touched defaults
		t.Errorf("1.5 page row missing expected defaults: %s", row)
	}

	v121, err := policyFor("1.21")
	if err != nil {
		t.Fatal(err)
	}
	row121, err := formatPageRow(p, v121)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(row121, "'wikitext'") {
		t.Errorf("1.21 page row missing page_content_model default: %s", row121)
	}
}

func TestFormatRevisionRowNullQuoting(t *testing.T) {
	r := &Revision{ID: 1, PageID: 1, TextID: 1, Sha1B36: strings.Repeat("0", sha1Base36Width)}
	v121, err := policyFor("1.21")
	if err != nil {
		t.Fatal(err)
	}
	row, err := formatRevisionRow(r, v121)
	if err != nil {
		t.Fatal(err)
	}
	// rev_content_model/rev_content_format are null_quote columns; an
	// unset Model/Format still renders NULL, not an empty string literal.
	if !strings.HasSuffix(row, ",NULL,NULL)") {
		t.Errorf("expected trailing NULL,NULL for unset content model/format, got %s", row)
	}
}
