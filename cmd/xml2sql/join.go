// SPDX-License-Identifier: MIT

package main

import (
	"io"
	"log"
)

// defaultDesyncLimit is K from spec.md §4.8: the number of revisions the
// two streams may drift apart before the driver gives up and aborts.
const defaultDesyncLimit = 1000

// joinDriver is C8: it advances the stub and content streams in lockstep,
// matching revisions by id, and flushes combined records through C5/C7 to
// the C6 batchers. It holds no locks and spawns no goroutines — the two
// streams are pulled strictly in turn from the same call stack, per
// spec.md §5's single-threaded cooperative model.
type joinDriver struct {
	stub    *assembler
	content *assembler

	contentPeek *recordRevision
	contentDone bool

	desyncLimit int
	nextTextID  uint32

	seenTextSourceID map[uint32]bool
	loggedNoContent  map[uint32]bool

	variant *SchemaVariant

	pageBatch *insertBatcher
	revBatch  *insertBatcher
	textBatch *insertBatcher

	counters *counters
	logger   *log.Logger
	verbose  bool
}

func newJoinDriver(
	stub, content *assembler,
	variant *SchemaVariant,
	startID uint32,
	desyncLimit int,
	pageBatch, revBatch, textBatch *insertBatcher,
	counters *counters,
	logger *log.Logger,
	verbose bool,
) *joinDriver {
	if desyncLimit <= 0 {
		desyncLimit = defaultDesyncLimit
	}
	return &joinDriver{
		stub:             stub,
		content:          content,
		desyncLimit:      desyncLimit,
		nextTextID:       startID,
		seenTextSourceID: make(map[uint32]bool),
		loggedNoContent:  make(map[uint32]bool),
		variant:          variant,
		pageBatch:        pageBatch,
		revBatch:         revBatch,
		textBatch:        textBatch,
		counters:         counters,
		logger:           logger,
		verbose:          verbose,
	}
}

// Run drives the join to completion: spec.md §4.8's end condition is stub
// stream EOF, at which point any remaining content-stream revisions are
// discarded and reported as a warning count.
func (d *joinDriver) Run() error {
	pages := 0
	for {
		rec, err := d.stub.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return wrapErr(KindXML, "reading stub stream", err)
		}

		switch v := rec.(type) {
		case *recordPage:
			row, err := formatPageRow(&v.Page, d.variant)
			if err != nil {
				return err
			}
			if err := d.pageBatch.AddRow(row); err != nil {
				return err
			}
			d.counters.Pages.Inc()
			pages++
			if d.verbose && pages%10000 == 0 {
				d.logger.Printf("processed %d pages", pages)
			}

		case *recordRevision:
			if err := d.handleStubRevision(v); err != nil {
				return err
			}
		}
	}

	leftover, err := d.drainLeftoverContent()
	if err != nil {
		return err
	}
	if leftover > 0 {
		d.counters.OrphanContent.Add(float64(leftover))
		d.logger.Printf("warning: %d content revisions had no matching stub entry", leftover)
	}
	return nil
}

func (d *joinDriver) handleStubRevision(stubRec *recordRevision) error {
	stubRev := stubRec.Revision

	content, err := d.findContent(stubRev.ID)
	if err != nil {
		return err
	}
	if content == nil {
		if !d.loggedNoContent[stubRev.PageID] {
			d.logger.Printf("warning: revision %d (page %d) has no matching content; emitting empty text",
				stubRev.ID, stubRev.PageID)
			d.loggedNoContent[stubRev.PageID] = true
		}
		d.counters.OrphanStub.Inc()
		return d.emitRevision(stubRev, Text{Flags: "utf-8"})
	}

	merged := mergeRevision(stubRev, content.Revision)
	text := content.Text
	if text.SourceID != 0 {
		if d.seenTextSourceID[text.SourceID] {
			d.counters.DuplicateTextID.Inc()
			d.logger.Printf("warning: duplicate text id %d, discarding duplicate content", text.SourceID)
			text = Text{Flags: "utf-8"}
		} else {
			d.seenTextSourceID[text.SourceID] = true
		}
	}
	return d.emitRevision(merged, text)
}

// mergeRevision combines the stub's metadata (authoritative spine) with
// whatever the content stream's matching revision can add: a real byte
// length, a digest computed from actual text when the stub alone
// couldn't supply one, and the deleted-text flag when the content's
// <text> was deleted.
func mergeRevision(stub, content Revision) Revision {
	merged := stub
	merged.TextSourceID = content.TextSourceID
	merged.DeletedFlags |= content.DeletedFlags & deletedText
	if content.Len > 0 {
		merged.Len = content.Len
	}
	if merged.Sha1B36 == "" && content.Sha1B36 != "" {
		merged.Sha1B36 = content.Sha1B36
	}
	return merged
}

func (d *joinDriver) emitRevision(rev Revision, text Text) error {
	rev.TextID = d.nextTextID
	text.ID = d.nextTextID
	d.nextTextID++

	revRow, err := formatRevisionRow(&rev, d.variant)
	if err != nil {
		return err
	}
	if err := d.revBatch.AddRow(revRow); err != nil {
		return err
	}

	textRow, err := formatTextRow(&text, d.variant)
	if err != nil {
		return err
	}
	if err := d.textBatch.AddRow(textRow); err != nil {
		return err
	}

	d.counters.Revisions.Inc()
	return nil
}

// findContent advances the content stream looking for a revision whose id
// matches want, per spec.md §4.8 points 2–4. It returns nil, nil if the
// content stream's next revision has already moved past want (case 2:
// the stub's revision has no content) or the content stream is
// exhausted.
func (d *joinDriver) findContent(want uint32) (*recordRevision, error) {
	skipped := 0
	for {
		if d.contentPeek == nil {
			if d.contentDone {
				return nil, nil
			}
			rec, err := d.content.Next()
			if err == io.EOF {
				d.contentDone = true
				return nil, nil
			}
			if err != nil {
				return nil, wrapErr(KindXML, "reading content stream", err)
			}
			if rev, ok := rec.(*recordRevision); ok {
				d.contentPeek = rev
			}
			continue
		}

		switch {
		case d.contentPeek.Revision.ID == want:
			rev := d.contentPeek
			d.contentPeek = nil
			return rev, nil

		case d.contentPeek.Revision.ID > want:
			return nil, nil

		default: // content.ID < want: surplus, skip it
			d.counters.OrphanContent.Inc()
			d.contentPeek = nil
			skipped++
			if skipped > d.desyncLimit {
				return nil, newErr(KindJoinDesync,
					"content stream %d revisions behind stub revision %d", skipped, want)
			}
		}
	}
}

// drainLeftoverContent counts (without emitting) any content revisions
// still unconsumed once the stub stream has reached EOF.
func (d *joinDriver) drainLeftoverContent() (int, error) {
	count := 0
	if d.contentPeek != nil {
		count++
		d.contentPeek = nil
	}
	for !d.contentDone {
		rec, err := d.content.Next()
		if err == io.EOF {
			d.contentDone = true
			break
		}
		if err != nil {
			return count, wrapErr(KindXML, "reading content stream", err)
		}
		if _, ok := rec.(*recordRevision); ok {
			count++
		}
	}
	return count, nil
}
