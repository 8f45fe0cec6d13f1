// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"golang.org/x/sync/errgroup"
)

var logger *log.Logger

func main() {
	stubsFlag := flag.String("stubs", "", "path to the stub-meta-history XML dump (.xml, .xml.gz, .xml.bz2, .xml.zst, .xml.xz, .xml.br)")
	textFlag := flag.String("text", "", "path to the pages-meta-history content XML dump")
	sqlFlag := flag.String("sql", "", "output path prefix; writes <prefix>-page.sql, <prefix>-revision.sql, <prefix>-text.sql")
	mwVersionFlag := flag.String("mwversion", "1.29", "target MediaWiki schema version")
	langFlag := flag.String("lang", "", "site language code, e.g. tr or az; enables Turkish title casing rules")
	startIDFlag := flag.Uint64("startid", 1, "first output text_id to allocate")
	batchCapFlag := flag.Int("batchsize", defaultBatchCap, "soft cap in bytes on a single INSERT statement")
	desyncFlag := flag.Int("desync", defaultDesyncLimit, "max content-stream revisions skipped searching for one stub revision before aborting")
	verboseFlag := flag.Bool("verbose", false, "log progress and a metrics summary to stderr")
	logfileFlag := flag.String("logfile", "", "optional file to receive log output in addition to stderr")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println("xml2sql (dev)")
		return
	}

	var logOut io.Writer = os.Stderr
	if *logfileFlag != "" {
		f, err := os.OpenFile(*logfileFlag, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "xml2sql: %v\n", err)
			os.Exit(mapExitCode(wrapErr(KindIO, "opening logfile", err)))
		}
		defer f.Close()
		logOut = io.MultiWriter(os.Stderr, f)
	}
	logger = log.New(logOut, "", log.Ldate|log.Ltime|log.LUTC)

	if err := run(runOptions{
		stubsPath:  *stubsFlag,
		textPath:   *textFlag,
		sqlPrefix:  *sqlFlag,
		mwVersion:  *mwVersionFlag,
		lang:       *langFlag,
		startID:    uint32(*startIDFlag),
		batchCap:   *batchCapFlag,
		desync:     *desyncFlag,
		verbose:    *verboseFlag,
	}); err != nil {
		logger.Printf("xml2sql: %v", err)
		fmt.Fprintf(os.Stderr, "xml2sql: %v\n", err)
		os.Exit(mapExitCode(err))
	}
}

type runOptions struct {
	stubsPath string
	textPath  string
	sqlPrefix string
	mwVersion string
	lang      string
	startID   uint32
	batchCap  int
	desync    int
	verbose   bool
}

// streams bundles the five file handles main acquires and releases
// concurrently via golang.org/x/sync/errgroup, the same fan-out pattern
// the teacher uses for bounded worker sets elsewhere in the module. This
// is resource acquisition concurrency only: the join driver below still
// runs single-threaded.
type streams struct {
	stubsR, textR      io.ReadCloser
	pageW, revW, textW io.WriteCloser
}

func (s *streams) Close() {
	var g errgroup.Group
	for _, c := range []io.Closer{s.stubsR, s.textR, s.pageW, s.revW, s.textW} {
		if c != nil {
			c := c
			g.Go(c.Close)
		}
	}
	g.Wait()
}

func run(opts runOptions) error {
	if opts.stubsPath == "" || opts.textPath == "" || opts.sqlPrefix == "" {
		return newErr(KindUsage, "--stubs, --text and --sql are all required")
	}

	variant, err := policyFor(opts.mwVersion)
	if err != nil {
		return err
	}

	outputs := []string{
		opts.sqlPrefix + "-page.sql",
		opts.sqlPrefix + "-revision.sql",
		opts.sqlPrefix + "-text.sql",
	}
	for _, path := range outputs {
		if err := refuseExistingNonEmpty(path); err != nil {
			return err
		}
	}

	s := &streams{}
	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() (err error) { s.stubsR, err = openRead(opts.stubsPath); return })
	g.Go(func() (err error) { s.textR, err = openRead(opts.textPath); return })
	g.Go(func() (err error) { s.pageW, err = openWrite(opts.sqlPrefix + "-page.sql"); return })
	g.Go(func() (err error) { s.revW, err = openWrite(opts.sqlPrefix + "-revision.sql"); return })
	g.Go(func() (err error) { s.textW, err = openWrite(opts.sqlPrefix + "-text.sql"); return })
	if err := g.Wait(); err != nil {
		s.Close()
		return err
	}
	defer s.Close()

	counters := newCounters()
	onWarning := func(format string, args ...interface{}) {
		logger.Printf(format, args...)
		counters.Malformed.Inc()
	}
	stubAsm := newAssembler(newLineBuffer(s.stubsR), opts.lang, onWarning)
	contentAsm := newAssembler(newLineBuffer(s.textR), opts.lang, onWarning)

	pageBatch := newInsertBatcher(s.pageW, "page", opts.batchCap)
	revBatch := newInsertBatcher(s.revW, "revision", opts.batchCap)
	textBatch := newInsertBatcher(s.textW, "text", opts.batchCap)
	driver := newJoinDriver(stubAsm, contentAsm, variant, opts.startID, opts.desync,
		pageBatch, revBatch, textBatch, counters, logger, opts.verbose)

	// On a fatal join error the in-flight batches are discarded, not
	// flushed: only statements already written reach the output.
	if err := driver.Run(); err != nil {
		return err
	}

	var closeGroup errgroup.Group
	closeGroup.Go(pageBatch.Close)
	closeGroup.Go(revBatch.Close)
	closeGroup.Go(textBatch.Close)
	if closeErr := closeGroup.Wait(); closeErr != nil {
		return closeErr
	}

	if opts.verbose {
		if err := counters.dumpMetrics(os.Stderr); err != nil {
			logger.Printf("failed to dump metrics: %v", err)
		}
	}
	return nil
}

// refuseExistingNonEmpty implements the supplemented restart-safety policy:
// this is a fresh-run tool, so it never silently clobbers output a
// previous run already produced.
func refuseExistingNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wrapErr(KindIO, "stat "+path, err)
	}
	if info.Size() > 0 {
		return newErr(KindUsage, "refusing to overwrite existing non-empty output file %s", path)
	}
	return nil
}
