// SPDX-License-Identifier: MIT

package main

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/expfmt"
)

// counters holds every countable event class from spec.md §4.8/§7: the
// join driver and the assemblers' warning callback increment these as they
// run, and dumpMetrics writes all of them out as a one-shot Prometheus
// text exposition at shutdown. No promhttp handler is ever registered —
// that would need a network listener, which spec.md rules out.
type counters struct {
	registry *prometheus.Registry

	Pages           prometheus.Counter
	Revisions       prometheus.Counter
	OrphanStub      prometheus.Counter
	OrphanContent   prometheus.Counter
	DuplicateTextID prometheus.Counter
	Malformed       prometheus.Counter
}

func newCounters() *counters {
	c := &counters{
		registry: prometheus.NewRegistry(),
		Pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xml2sql", Name: "pages_total", Help: "Pages written to the page table.",
		}),
		Revisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xml2sql", Name: "revisions_total", Help: "Revisions written to the revision table.",
		}),
		OrphanStub: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xml2sql", Name: "orphan_stub_total", Help: "Stub revisions with no matching content.",
		}),
		OrphanContent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xml2sql", Name: "orphan_content_total", Help: "Content revisions with no matching stub entry.",
		}),
		DuplicateTextID: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xml2sql", Name: "duplicate_text_id_total", Help: "Duplicate source text ids discarded.",
		}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "xml2sql", Name: "malformed_records_total", Help: "Recoverable malformed records skipped.",
		}),
	}
	c.registry.MustRegister(c.Pages, c.Revisions, c.OrphanStub, c.OrphanContent, c.DuplicateTextID, c.Malformed)
	return c
}

// dumpMetrics writes the registry's current values as Prometheus text
// exposition format, used only for the optional --verbose end-of-run
// summary; never served over HTTP.
func (c *counters) dumpMetrics(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return wrapErr(KindInternal, "gathering metrics", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return wrapErr(KindInternal, "encoding metrics", err)
		}
	}
	return nil
}
