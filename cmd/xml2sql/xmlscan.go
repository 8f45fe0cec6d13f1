// SPDX-License-Identifier: MIT

package main

import (
	"encoding/xml"
	"io"
	"strconv"
)

// xmlEventKind is one of the three event kinds spec.md §4.3 names.
type xmlEventKind int

const (
	evStartTag xmlEventKind = iota
	evText
	evEndTag
)

// xmlEvent is a single pull-scanner event: a start tag with its ordered
// attributes, decoded text, or an end tag.
type xmlEvent struct {
	Kind  xmlEventKind
	Name  string
	Attrs []xmlAttr
	Text  []byte
}

type xmlAttr struct {
	Name  string
	Value string
}

func (e *xmlEvent) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// xmlScanner is a lightweight, non-validating pull scanner over a byte
// stream, built on encoding/xml.Decoder: CDATA and character-entity
// decoding, lenient handling of processing instructions and comments, and
// paired events for self-closing tags all come for free from the standard
// library, which is the idiomatic streaming choice here (see DESIGN.md).
type xmlScanner struct {
	dec *xml.Decoder
}

func newXMLScanner(r io.Reader) *xmlScanner {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	return &xmlScanner{dec: dec}
}

// Next returns the next event, or io.EOF when the stream is exhausted.
// Comments and processing instructions are skipped transparently.
func (s *xmlScanner) Next() (xmlEvent, error) {
	for {
		tok, err := s.dec.Token()
		if err != nil {
			if err == io.EOF {
				return xmlEvent{}, io.EOF
			}
			return xmlEvent{}, &xmlError{offset: s.dec.InputOffset(), reason: err.Error()}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make([]xmlAttr, len(t.Attr))
			for i, a := range t.Attr {
				attrs[i] = xmlAttr{Name: a.Name.Local, Value: a.Value}
			}
			return xmlEvent{Kind: evStartTag, Name: t.Name.Local, Attrs: attrs}, nil
		case xml.EndElement:
			return xmlEvent{Kind: evEndTag, Name: t.Name.Local}, nil
		case xml.CharData:
			if len(t) == 0 {
				continue
			}
			return xmlEvent{Kind: evText, Text: []byte(t)}, nil
		default:
			// xml.Comment, xml.ProcInst, xml.Directive: skip.
			continue
		}
	}
}

// xmlError reports a scanner framing failure with the byte offset where
// it was detected, as spec.md §4.3 requires.
type xmlError struct {
	offset int64
	reason string
}

func (e *xmlError) Error() string {
	return "xml error at offset " + strconv.FormatInt(e.offset, 10) + ": " + e.reason
}
