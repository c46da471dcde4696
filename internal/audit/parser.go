package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
)

const maxLogLine = 2 * 1024 * 1024

// ParseFile reads the JSONL audit log back into entries. A missing file is
// an empty history, not an error. Lines that fail to decode (torn writes,
// manual edits) are skipped and reported once, so one bad line never hides
// the rest of the log from /api/stats.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	skipped := 0
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	for s.Scan() {
		raw := bytes.TrimSpace(s.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	if skipped > 0 {
		log.Printf("[audit] skipped %d malformed line(s) in %s", skipped, path)
	}
	return entries, nil
}
