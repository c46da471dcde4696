package morph

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/vellum"
	"github.com/edsrzf/mmap-go"
	"github.com/kljensen/snowball"
)

const (
	// IndexFile is the FST mapping word form -> record offset in the pool.
	IndexFile = "index.fst"
	// PoolFile holds the candidate records the FST points into.
	PoolFile = "lemmas.pool"

	// PredictedTag marks candidates produced by the suffix predictor rather
	// than a dictionary hit.
	PredictedTag = "UNKN"
)

var ErrNotFound = errors.New("word not in dictionary")

// Dictionary is a word form -> candidates analyzer. Lookups go through a
// vellum FST whose values are offsets into a record pool; the pool is
// memory-mapped read-only so loading a large dictionary copies nothing onto
// the heap. A small in-memory form table (the embedded dictionary) can back
// a Dictionary instead of the compiled artifact.
//
// Read-only after construction and safe for concurrent use.
type Dictionary struct {
	fst  *vellum.FST
	pool mmap.MMap
	file *os.File

	forms map[string][]Parse

	predict bool
}

// Open loads a compiled dictionary artifact from dir (IndexFile + PoolFile).
func Open(dir string) (*Dictionary, error) {
	fst, err := vellum.Open(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("open dictionary index: %w", err)
	}
	f, err := os.Open(filepath.Join(dir, PoolFile))
	if err != nil {
		_ = fst.Close()
		return nil, fmt.Errorf("open lemma pool: %w", err)
	}
	pool, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = fst.Close()
		_ = f.Close()
		return nil, fmt.Errorf("mmap lemma pool: %w", err)
	}
	return &Dictionary{fst: fst, pool: pool, file: f, predict: true}, nil
}

// NewInMemory builds a Dictionary from an explicit form table. Candidate
// order in the slices is the ranked order Parse reports.
func NewInMemory(forms map[string][]Parse) *Dictionary {
	return &Dictionary{forms: forms, predict: true}
}

// DisablePrediction makes Parse return ErrNotFound for out-of-vocabulary
// words instead of falling back to the suffix predictor.
func (d *Dictionary) DisablePrediction() { d.predict = false }

// Parse returns the candidates for a normalized word form, best first.
// Out-of-vocabulary words get a single predicted candidate derived from the
// Russian Snowball stemmer unless prediction is disabled.
func (d *Dictionary) Parse(word string) ([]Parse, error) {
	if word == "" {
		return nil, ErrNotFound
	}
	if candidates, err := d.lookup(word); err == nil {
		return candidates, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if !d.predict {
		return nil, ErrNotFound
	}
	stem, err := snowball.Stem(word, "russian", false)
	if err != nil || stem == "" {
		// Prediction is best-effort: a word the stemmer cannot handle still
		// gets itself as its normal form, matching dictionary behavior for
		// indeclinable words.
		stem = word
	}
	return []Parse{{NormalForm: stem, Tag: PredictedTag}}, nil
}

func (d *Dictionary) lookup(word string) ([]Parse, error) {
	if d.forms != nil {
		candidates, ok := d.forms[word]
		if !ok || len(candidates) == 0 {
			return nil, ErrNotFound
		}
		return candidates, nil
	}
	offset, found, err := d.fst.Get([]byte(word))
	if err != nil {
		return nil, fmt.Errorf("index lookup: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return d.decodeRecord(offset)
}

// decodeRecord reads one candidate record from the pool: a uvarint count
// followed by count (lemma, tag) pairs, each a uvarint length and raw bytes.
func (d *Dictionary) decodeRecord(offset uint64) ([]Parse, error) {
	buf := []byte(d.pool)
	if offset >= uint64(len(buf)) {
		return nil, fmt.Errorf("record offset %d out of range", offset)
	}
	buf = buf[offset:]
	count, n := binary.Uvarint(buf)
	if n <= 0 || count == 0 {
		return nil, fmt.Errorf("corrupt record at offset %d", offset)
	}
	buf = buf[n:]
	candidates := make([]Parse, 0, count)
	for i := uint64(0); i < count; i++ {
		lemma, rest, err := readBlob(buf)
		if err != nil {
			return nil, fmt.Errorf("corrupt record at offset %d: %w", offset, err)
		}
		tag, rest, err := readBlob(rest)
		if err != nil {
			return nil, fmt.Errorf("corrupt record at offset %d: %w", offset, err)
		}
		buf = rest
		candidates = append(candidates, Parse{NormalForm: string(lemma), Tag: string(tag)})
	}
	return candidates, nil
}

func readBlob(buf []byte) (blob, rest []byte, err error) {
	size, n := binary.Uvarint(buf)
	if n <= 0 || uint64(len(buf)-n) < size {
		return nil, nil, errors.New("truncated blob")
	}
	return buf[n : n+int(size)], buf[n+int(size):], nil
}

// Len reports the number of distinct word forms, or -1 for a compiled
// dictionary (the FST does not expose cardinality cheaply).
func (d *Dictionary) Len() int {
	if d.forms != nil {
		return len(d.forms)
	}
	return -1
}

// Close releases the FST and the mapped pool. Safe on an in-memory dictionary.
func (d *Dictionary) Close() error {
	var firstErr error
	if d.fst != nil {
		if err := d.fst.Close(); err != nil {
			firstErr = err
		}
		d.fst = nil
	}
	if d.pool != nil {
		if err := d.pool.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.pool = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.file = nil
	}
	return firstErr
}
