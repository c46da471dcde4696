package morph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blevesearch/vellum"
)

// ParseTSV reads a word table: one candidate per line, `form<TAB>lemma<TAB>tag`
// (tag optional). Lines for the same form accumulate in file order, which
// becomes the ranked candidate order. Blank lines and #-comments are skipped.
func ParseTSV(r io.Reader) (map[string][]Parse, error) {
	forms := make(map[string][]Parse)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		row := strings.TrimSpace(scanner.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		fields := strings.Split(row, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want form<TAB>lemma[<TAB>tag], got %q", line, row)
		}
		form := strings.TrimSpace(fields[0])
		lemma := strings.TrimSpace(fields[1])
		tag := ""
		if len(fields) > 2 {
			tag = strings.TrimSpace(fields[2])
		}
		if form == "" || lemma == "" {
			return nil, fmt.Errorf("line %d: empty form or lemma", line)
		}
		forms[form] = append(forms[form], Parse{NormalForm: lemma, Tag: tag})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan word table: %w", err)
	}
	return forms, nil
}

// Build compiles a form table into the on-disk artifact Open understands:
// a candidate pool plus an FST keyed by form whose values are pool offsets.
func Build(forms map[string][]Parse, dir string) error {
	if len(forms) == 0 {
		return fmt.Errorf("empty form table")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	words := make([]string, 0, len(forms))
	for w := range forms {
		words = append(words, w)
	}
	sort.Strings(words)

	poolPath := filepath.Join(dir, PoolFile)
	poolFile, err := os.Create(poolPath)
	if err != nil {
		return fmt.Errorf("create lemma pool: %w", err)
	}
	pool := bufio.NewWriter(poolFile)

	offsets := make(map[string]uint64, len(words))
	var off uint64
	var scratch [binary.MaxVarintLen64]byte
	writeUvarint := func(v uint64) error {
		n := binary.PutUvarint(scratch[:], v)
		if _, err := pool.Write(scratch[:n]); err != nil {
			return err
		}
		off += uint64(n)
		return nil
	}
	writeBlob := func(s string) error {
		if err := writeUvarint(uint64(len(s))); err != nil {
			return err
		}
		if _, err := pool.WriteString(s); err != nil {
			return err
		}
		off += uint64(len(s))
		return nil
	}

	for _, w := range words {
		offsets[w] = off
		candidates := forms[w]
		if err := writeUvarint(uint64(len(candidates))); err != nil {
			return poolWriteErr(poolFile, err)
		}
		for _, c := range candidates {
			if err := writeBlob(c.NormalForm); err != nil {
				return poolWriteErr(poolFile, err)
			}
			if err := writeBlob(c.Tag); err != nil {
				return poolWriteErr(poolFile, err)
			}
		}
	}
	if err := pool.Flush(); err != nil {
		return poolWriteErr(poolFile, err)
	}
	if err := poolFile.Close(); err != nil {
		return fmt.Errorf("close lemma pool: %w", err)
	}

	fstFile, err := os.Create(filepath.Join(dir, IndexFile))
	if err != nil {
		return fmt.Errorf("create dictionary index: %w", err)
	}
	builder, err := vellum.New(fstFile, nil)
	if err != nil {
		_ = fstFile.Close()
		return fmt.Errorf("start index builder: %w", err)
	}
	for _, w := range words {
		if err := builder.Insert([]byte(w), offsets[w]); err != nil {
			_ = builder.Close()
			_ = fstFile.Close()
			return fmt.Errorf("index %q: %w", w, err)
		}
	}
	if err := builder.Close(); err != nil {
		_ = fstFile.Close()
		return fmt.Errorf("finish index: %w", err)
	}
	return fstFile.Close()
}

func poolWriteErr(f *os.File, err error) error {
	_ = f.Close()
	return fmt.Errorf("write lemma pool: %w", err)
}
