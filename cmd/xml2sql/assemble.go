// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Page is a row destined for the `page` table. See spec.md §3.
type Page struct {
	ID            uint32
	Namespace     int16
	Title         string
	Restrictions  string
	IsRedirect    bool
	RedirectTitle string // supplements the distilled spec; not written to any table
	LatestRevID   uint32 // id of the page's current (last-seen) revision
	Len           uint32 // byte length of that revision's text
}

// Revision is a row destined for the `revision` table. TextID is filled in
// later by the join driver (C8), not by the assembler: it is the output
// text_id, distinct from TextSourceID, the dump's own <text id> attribute.
type Revision struct {
	ID           uint32
	PageID       uint32
	TextSourceID uint32
	TextID       uint32
	Comment      string
	UserID       uint32
	UserText     string
	Timestamp    string // db_timestamp, YYYYMMDDHHMMSS
	Minor        bool
	DeletedFlags uint8
	Len          uint32
	ParentID     uint32
	Sha1B36      string
	Model        string
	Format       string
}

// Text is a row destined for the `text` table.
type Text struct {
	SourceID uint32 // the dump's <text id>, 0 if absent
	ID       uint32 // output text_id, filled in by the join driver
	Content  []byte
	Flags    string
}

// Deleted-content bitmask, per spec.md's glossary entry for "Deleted flag".
const (
	deletedText uint8 = 1 << iota
	deletedComment
	deletedUser
)

// Namespace records one <namespace> entry from a dump's <siteinfo> block.
// Supplements the distilled spec: used only to sanity-check a page's <ns>
// against the declared namespace ids (see assembler.checkNamespace).
type Namespace struct {
	ID        int16
	Localized string
}

var titleCaser = cases.Fold()

// normalizeTitle applies the same NFC normalization MediaWiki itself
// performs on page titles before storage, mirroring the teacher's own
// formatLine (cmd/qrank-builder/util.go), which NFC-normalizes titles read
// from Wikimedia dumps for the same reason: a title decoded byte-for-byte
// from XML may not be in the form the wiki's database actually stores.
func normalizeTitle(title string) string {
	return norm.NFC.String(title)
}

// foldTitle case-folds a title for the assembler's duplicate-title check
// (checkDuplicateTitle). Turkish and Azeri wikis get Turkish casing rules
// (dotted/dotless I) instead of the Unicode default, exactly the special
// case the teacher's util.go carves out for the same two language codes.
func foldTitle(title, langHint string) string {
	if strings.HasPrefix(langHint, "tr") || strings.HasPrefix(langHint, "az") {
		return strings.ToLowerSpecial(unicode.TurkishCase, title)
	}
	return titleCaser.String(title)
}

// A record is either a *recordPage or a *recordRevision, yielded by the
// assembler in the order described on Next.
type recordPage struct{ Page Page }
type recordRevision struct {
	Revision Revision
	Text     Text
}

// assembler implements C4: it consumes xmlScanner events and assembles
// typed Page/Revision/Text records. Its working set is O(1) records, per
// spec.md §3's Lifecycle invariant: a record is created on its opening
// tag, completed on its closing tag, handed to the caller, then forgotten.
type assembler struct {
	scan    *xmlScanner
	pending []interface{} // *recordPage or *recordRevision

	namespaces         map[int16]Namespace
	pendingNamespaceID int16
	langHint           string
	seenFoldedTitles   map[string]uint32

	inSiteinfo   bool
	inNamespaces bool

	inPage        bool
	pageEmitted   bool
	page          Page

	inRevision    bool
	rev           Revision
	text          Text
	inTextElem    bool
	textDeleted   bool
	hasBytesAttr  bool

	inContributor bool

	leafName string
	leafBuf  bytes.Buffer

	onWarning func(format string, args ...interface{})
}

func newAssembler(r io.Reader, langHint string, onWarning func(string, ...interface{})) *assembler {
	if onWarning == nil {
		onWarning = func(string, ...interface{}) {}
	}
	return &assembler{
		scan:             newXMLScanner(r),
		namespaces:       make(map[int16]Namespace),
		langHint:         langHint,
		seenFoldedTitles: make(map[string]uint32),
		onWarning:        onWarning,
	}
}

// Next returns the next assembled record: one *recordRevision per
// revision of a page, as each is closed, followed by one *recordPage at
// </page> once page_latest/page_len are known from the page's last
// revision. Cross-table ordering has no meaning here (see spec.md §5),
// so the page row trailing its revisions costs nothing downstream.
func (a *assembler) Next() (interface{}, error) {
	for len(a.pending) == 0 {
		ev, err := a.scan.Next()
		if err != nil {
			return nil, err
		}
		if err := a.handle(ev); err != nil {
			return nil, err
		}
	}
	rec := a.pending[0]
	a.pending = a.pending[1:]
	return rec, nil
}

func (a *assembler) handle(ev xmlEvent) error {
	switch ev.Kind {
	case evStartTag:
		return a.handleStart(ev)
	case evText:
		if a.leafName != "" {
			if a.leafBuf.Len()+len(ev.Text) > maxLineSize {
				return wrapErr(KindXML, "element content exceeds maximum size", errLineTooLong)
			}
			a.leafBuf.Write(ev.Text)
		}
		return nil
	case evEndTag:
		return a.handleEnd(ev.Name)
	}
	return nil
}

func (a *assembler) handleStart(ev xmlEvent) error {
	name := ev.Name
	switch {
	case name == "siteinfo":
		a.inSiteinfo = true

	case name == "namespaces" && a.inSiteinfo:
		a.inNamespaces = true

	case name == "namespace" && a.inNamespaces:
		idStr, _ := ev.Attr("key")
		id, _ := strconv.ParseInt(idStr, 10, 16)
		a.leafName = "namespace"
		a.leafBuf.Reset()
		a.pendingNamespaceID = int16(id)

	case name == "page":
		a.inPage = true
		a.pageEmitted = false
		a.page = Page{}

	case name == "redirect" && a.inPage && !a.inRevision:
		if title, ok := ev.Attr("title"); ok {
			a.page.RedirectTitle = normalizeTitle(title)
		}
		a.page.IsRedirect = true

	case name == "revision" && a.inPage:
		a.inRevision = true
		a.rev = Revision{PageID: a.page.ID}
		a.text = Text{}
		a.inTextElem = false
		a.textDeleted = false
		a.hasBytesAttr = false

	case name == "contributor" && a.inRevision:
		a.inContributor = true
		if d, ok := ev.Attr("deleted"); ok && d == "deleted" {
			a.rev.DeletedFlags |= deletedUser
		}

	case name == "minor" && a.inRevision:
		a.rev.Minor = true

	case name == "comment" && a.inRevision:
		if d, ok := ev.Attr("deleted"); ok && d == "deleted" {
			a.rev.DeletedFlags |= deletedComment
		}
		a.leafName = "comment"
		a.leafBuf.Reset()

	case name == "text" && a.inRevision:
		a.inTextElem = true
		a.leafName = "text"
		a.leafBuf.Reset()
		if idStr, ok := ev.Attr("id"); ok {
			if id, err := strconv.ParseUint(idStr, 10, 32); err == nil {
				a.text.SourceID = uint32(id)
			}
		}
		if bStr, ok := ev.Attr("bytes"); ok {
			if n, err := strconv.ParseInt(bStr, 10, 64); err == nil {
				a.rev.Len = uint32(n)
				a.hasBytesAttr = true
			}
		}
		if sha, ok := ev.Attr("sha1"); ok && sha != "" {
			a.rev.Sha1B36 = sha
		}

	case name == "deleted" && a.inTextElem:
		a.textDeleted = true

	case isLeafElement(name):
		a.leafName = name
		a.leafBuf.Reset()
	}
	return nil
}

// pendingNamespaceID, declared in the assembler struct above, is only
// meaningful while a.leafName == "namespace".
func isLeafElement(name string) bool {
	switch name {
	case "id", "title", "ns", "timestamp", "parentid", "username", "ip",
		"model", "format", "sha1", "restrictions":
		return true
	}
	return false
}

func (a *assembler) handleEnd(name string) error {
	switch name {
	case "siteinfo":
		a.inSiteinfo = false
	case "namespaces":
		a.inNamespaces = false
	case "namespace":
		a.namespaces[a.pendingNamespaceID] = Namespace{
			ID:        a.pendingNamespaceID,
			Localized: a.leafBuf.String(),
		}
		a.leafName = ""
	case "contributor":
		a.inContributor = false
	case "text":
		return a.endText()
	case "revision":
		return a.endRevision()
	case "page":
		return a.endPage()
	case a.leafName:
		a.endLeaf(name)
	}
	return nil
}

func (a *assembler) endLeaf(name string) {
	text := a.leafBuf.String()
	switch name {
	case "title":
		a.page.Title = normalizeTitle(text)
	case "ns":
		if n, err := strconv.ParseInt(text, 10, 16); err == nil {
			a.page.Namespace = int16(n)
		}
	case "id":
		n, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			a.onWarning("unparseable id %q", text)
		} else {
			switch {
			case a.inContributor:
				a.rev.UserID = uint32(n)
			case a.inRevision:
				a.rev.ID = uint32(n)
			case a.inPage:
				a.page.ID = uint32(n)
			}
		}
	case "parentid":
		if n, err := strconv.ParseUint(text, 10, 32); err == nil {
			a.rev.ParentID = uint32(n)
		}
	case "timestamp":
		ts, err := parseDBTimestamp(text)
		if err != nil {
			a.onWarning("unparseable timestamp %q: %v", text, err)
		} else {
			a.rev.Timestamp = ts
		}
	case "comment":
		a.rev.Comment = text
	case "username":
		a.rev.UserText = text
	case "ip":
		a.rev.UserText = text
		a.rev.UserID = 0
	case "model":
		a.rev.Model = text
	case "format":
		a.rev.Format = text
	case "sha1":
		if a.inRevision && !a.inTextElem {
			a.rev.Sha1B36 = text
		}
	case "restrictions":
		a.page.Restrictions = text
	}
	a.leafName = ""
}

func (a *assembler) endText() error {
	if a.textDeleted {
		a.text.Content = nil
		a.rev.DeletedFlags |= deletedText
	} else {
		a.text.Content = []byte(a.leafBuf.String())
	}
	a.text.Flags = "utf-8"
	if !a.hasBytesAttr {
		a.rev.Len = uint32(len(a.text.Content))
	}
	a.inTextElem = false
	a.leafName = ""
	return nil
}

func (a *assembler) endRevision() error {
	// A revision with no <text> element at all is treated like deleted
	// text: empty content, deletedText set. endText always sets Flags, so
	// an empty Flags here means no <text> was seen.
	if a.text.Flags == "" {
		a.text.Flags = "utf-8"
		a.rev.DeletedFlags |= deletedText
	}
	// Dumps older than MediaWiki 1.21 carry no <model>/<format>; those
	// revisions get the wikitext defaults. Pre-1.21 output variants have
	// no such columns, so the values are simply not written there.
	if a.rev.Model == "" {
		a.rev.Model = "wikitext"
	}
	if a.rev.Format == "" {
		a.rev.Format = "text/x-wiki"
	}
	if a.rev.Sha1B36 == "" && len(a.text.Content) > 0 {
		a.rev.Sha1B36 = sha1Base36(a.text.Content)
	} else if a.rev.Sha1B36 != "" {
		if err := validateSha1B36(a.rev.Sha1B36); err != nil {
			a.onWarning("invalid sha1 %q for revision %d: %v", a.rev.Sha1B36, a.rev.ID, err)
			a.rev.Sha1B36 = sha1Base36(a.text.Content)
		}
	}
	// The page row is flushed at </page>, not here, so the last revision
	// processed before that point decides page_latest/page_len — exactly
	// the current revision MediaWiki's own page table tracks.
	a.page.LatestRevID = a.rev.ID
	a.page.Len = a.rev.Len
	a.inRevision = false
	a.pending = append(a.pending, &recordRevision{Revision: a.rev, Text: a.text})
	return nil
}

func (a *assembler) endPage() error {
	if err := a.emitPageIfNeeded(); err != nil {
		return err
	}
	a.inPage = false
	return nil
}

func (a *assembler) emitPageIfNeeded() error {
	if a.pageEmitted {
		return nil
	}
	a.checkNamespace()
	a.checkDuplicateTitle()
	a.pending = append(a.pending, &recordPage{Page: a.page})
	a.pageEmitted = true
	return nil
}

// checkDuplicateTitle warns if two distinct page ids fold to the same
// title within a single namespace: MediaWiki itself enforces a unique
// index on (namespace, title), so two occurrences in one dump indicate a
// malformed or hand-edited export.
func (a *assembler) checkDuplicateTitle() {
	key := strconv.Itoa(int(a.page.Namespace)) + ":" + foldTitle(a.page.Title, a.langHint)
	if existing, ok := a.seenFoldedTitles[key]; ok && existing != a.page.ID {
		a.onWarning("page %d: title %q folds the same as page %d", a.page.ID, a.page.Title, existing)
		return
	}
	a.seenFoldedTitles[key] = a.page.ID
}

func (a *assembler) checkNamespace() {
	if len(a.namespaces) == 0 {
		return
	}
	if _, ok := a.namespaces[a.page.Namespace]; !ok {
		a.onWarning("page %d: namespace %d not declared in siteinfo", a.page.ID, a.page.Namespace)
	}
}

// parseDBTimestamp converts the ISO 8601 timestamp MediaWiki dumps use
// into the 14-digit MySQL db_timestamp format, per spec.md §4.4.
func parseDBTimestamp(s string) (string, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", err
	}
	return t.UTC().Format("20060102150405"), nil
}

