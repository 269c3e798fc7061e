// ohashutil.go -- build or inspect a term index / stored-fields / lengths
// file triple from a tab-delimited text file.
//
// Each input line is one document: tab-separated `field=value` pairs.
// Every value is both stored verbatim (stored-fields table) and tokenized
// on whitespace to build per-field term statistics (term index) and
// approximate field lengths (lengths file).
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	ohash "github.com/opencoff/go-ohash"
	"github.com/opencoff/go-ohash/lengths"
	"github.com/opencoff/go-ohash/stored"
	"github.com/opencoff/go-ohash/termdb"

	flag "github.com/opencoff/pflag"
)

func main() {
	var out string
	var sidecar bool
	var dump bool

	usage := fmt.Sprintf("%s [options] INPUT", os.Args[0])

	flag.StringVarP(&out, "out", "o", "", "Write output files using `PREFIX`")
	flag.BoolVarP(&sidecar, "sidecar", "s", false, "Also write a detached integrity sidecar for each output file")
	flag.BoolVarP(&dump, "dump", "d", false, "Dump an existing PREFIX instead of building one (INPUT is the prefix)")
	flag.Usage = func() {
		fmt.Printf("ohashutil - build or inspect a term-index/stored-fields/lengths file triple\nUsage: %s\n", usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		die("expected exactly one INPUT argument\nUsage: %s", usage)
	}

	if dump {
		dumpTriple(args[0])
		return
	}

	if out == "" {
		die("--out PREFIX is required when building")
	}

	if err := build(args[0], out, sidecar); err != nil {
		die("%s", err)
	}
}

type document struct {
	fields map[string]string
}

func readDocuments(path string) ([]document, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var docs []document
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := make(map[string]string)
		for _, part := range strings.Split(line, "\t") {
			i := strings.IndexByte(part, '=')
			if i < 0 {
				continue
			}
			fields[part[:i]] = part[i+1:]
		}
		if len(fields) > 0 {
			docs = append(docs, document{fields: fields})
		}
	}
	return docs, sc.Err()
}

func build(inPath, prefix string, sidecar bool) error {
	docs, err := readDocuments(inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inPath, err)
	}

	fieldSet := make(map[string]bool)
	for _, d := range docs {
		for name := range d.fields {
			fieldSet[name] = true
		}
	}
	fieldNames := make([]string, 0, len(fieldSet))
	for name := range fieldSet {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	if err := writeStoredFields(prefix+".stb", docs, fieldNames, sidecar); err != nil {
		return err
	}

	lens, err := buildTermIndex(prefix+".trm", docs, fieldNames, sidecar)
	if err != nil {
		return err
	}

	if err := lens.ToFile(mustCreate(prefix+".len"), uint32(len(docs))); err != nil {
		return fmt.Errorf("write %s.len: %w", prefix, err)
	}

	if sidecar {
		for _, p := range []string{prefix + ".stb", prefix + ".len"} {
			if err := ohash.WriteSidecar(p); err != nil {
				return fmt.Errorf("sidecar %s: %w", p, err)
			}
		}
	}

	fmt.Printf("+ %d documents, %d fields -> %s.{trm,stb,len}\n", len(docs), len(fieldNames), prefix)
	return nil
}

func mustCreate(path string) ohash.File {
	f, err := ohash.Create(path)
	if err != nil {
		die("create %s: %s", path, err)
	}
	return f
}

func writeStoredFields(path string, docs []document, fieldNames []string, sidecar bool) error {
	sw, err := stored.NewWriter(mustCreate(path), fieldNames)
	if err != nil {
		return err
	}
	_ = sidecar // stored.Writer has no sidecar option; build writes this file's sidecar after commit

	for _, d := range docs {
		values := make(map[string]interface{}, len(d.fields))
		for k, v := range d.fields {
			values[k] = v
		}
		if err := sw.Append(values); err != nil {
			sw.Abort()
			return fmt.Errorf("append to %s: %w", path, err)
		}
	}
	return sw.Close()
}

func writerOpts(sidecar bool) []ohash.WriterOption {
	if sidecar {
		return []ohash.WriterOption{ohash.WithSidecar()}
	}
	return nil
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

func buildTermIndex(path string, docs []document, fieldNames []string, sidecar bool) (*lengths.Lengths, error) {
	lens := lengths.New()

	// field -> term -> *termdb.TermInfo, accumulated across every document.
	stats := make(map[string]map[string]*termdb.TermInfo)

	for docnum, d := range docs {
		for _, field := range fieldNames {
			val, ok := d.fields[field]
			if !ok {
				continue
			}
			terms := tokenize(val)
			lens.Add(uint32(docnum), field, len(terms))

			counts := make(map[string]int)
			for _, t := range terms {
				counts[t]++
			}
			for term, count := range counts {
				byField, ok := stats[field]
				if !ok {
					byField = make(map[string]*termdb.TermInfo)
					stats[field] = byField
				}
				ti, ok := byField[term]
				if !ok {
					ti = &termdb.TermInfo{}
					byField[term] = ti
				}
				if err := ti.AddBlock(termdb.PostingBlock{
					IDs:       []uint64{uint64(docnum)},
					Weights:   []float32{float32(count)},
					MinLength: len(terms),
					MaxLength: len(terms),
				}); err != nil {
					return nil, fmt.Errorf("doc %d field %s term %s: %w", docnum, field, term, err)
				}
			}
		}
	}

	tw, err := termdb.NewTermIndexWriter(mustCreate(path), writerOpts(sidecar)...)
	if err != nil {
		return nil, err
	}

	for _, field := range fieldNames {
		terms := make([]string, 0, len(stats[field]))
		for term := range stats[field] {
			terms = append(terms, term)
		}
		sort.Strings(terms)
		for _, term := range terms {
			if err := tw.Add(field, term, stats[field][term]); err != nil {
				tw.Abort()
				return nil, fmt.Errorf("add term %s/%s: %w", field, term, err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return lens, nil
}

func dumpTriple(prefix string) {
	sf, err := ohash.Open(prefix + ".stb")
	if err != nil {
		die("open %s.stb: %s", prefix, err)
	}
	sr, err := stored.NewReader(sf)
	if err != nil {
		die("read %s.stb: %s", prefix, err)
	}
	fmt.Printf("%s.stb: %d documents\n", prefix, sr.Len())
	if sr.Len() > 0 {
		v, err := sr.Get(0)
		if err == nil {
			fmt.Printf("  doc 0: %v\n", v)
		}
	}
	sr.Close()

	lf, err := ohash.Open(prefix + ".len")
	if err != nil {
		die("open %s.len: %s", prefix, err)
	}
	l, err := lengths.FromFile(lf, uint32(sr.Len()))
	if err != nil {
		die("read %s.len: %s", prefix, err)
	}
	for _, name := range l.FieldNames() {
		fmt.Printf("%s.len: field %q total=%d min=%d max=%d\n",
			prefix, name, l.FieldLength(name), l.MinFieldLength(name), l.MaxFieldLength(name))
	}
}

func die(f string, v ...interface{}) {
	warn(f, v...)
	os.Exit(1)
}

func warn(f string, v ...interface{}) {
	z := fmt.Sprintf("%s: %s", os.Args[0], f)
	s := fmt.Sprintf(z, v...)
	if n := len(s); n == 0 || s[n-1] != '\n' {
		s += "\n"
	}
	os.Stderr.WriteString(s)
	os.Stderr.Sync()
}
