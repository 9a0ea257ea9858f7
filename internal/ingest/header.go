package ingest

import (
	"fmt"
	"strings"

	"github.com/awsl-project/ranstat/internal/domain"
)

// MaxHeaderScanRows bounds how many leading rows are searched for the header.
const MaxHeaderScanRows = 20

// rowMapper turns raw cell rows into RawRecords once the header row is found.
// 表头之前的行（报表标题、导出说明）直接丢弃
type rowMapper struct {
	feed    domain.Feed
	columns []string // 列下标 -> 规范字段，"" 表示未识别
	scanned int

	// 最接近表头的候选行，用于错误提示
	bestMissing []string
	bestHits    int
}

func newRowMapper(feed domain.Feed) *rowMapper {
	return &rowMapper{feed: feed}
}

func (m *rowMapper) headerFound() bool {
	return m.columns != nil
}

// next consumes one source row. It returns a record for data rows, nil for the
// header row, leading rows and blank rows, and an error once the scan window
// is exhausted without a header.
func (m *rowMapper) next(cells []string) (domain.RawRecord, error) {
	if m.headerFound() {
		return m.record(cells), nil
	}

	m.scanned++
	columns, hits := resolveColumns(cells)
	missing := missingGroups(m.feed, columns)
	if len(missing) == 0 {
		m.columns = columns
		return nil, nil
	}
	if hits > m.bestHits {
		m.bestHits = hits
		m.bestMissing = missing
	}
	if m.scanned >= MaxHeaderScanRows {
		return nil, m.headerError()
	}
	return nil, nil
}

// finish reports a structural error when input ended before a header was found.
func (m *rowMapper) finish() error {
	if m.headerFound() {
		return nil
	}
	if m.scanned == 0 {
		return domain.ErrEmptyInput
	}
	return m.headerError()
}

func (m *rowMapper) headerError() error {
	// 至少识别出两列才算"像表头"，否则视为没有表头
	if m.bestHits < 2 {
		return fmt.Errorf("%w in first %d rows", domain.ErrNoHeader, MaxHeaderScanRows)
	}
	return fmt.Errorf("%w for %s: %s", domain.ErrMissingColumns, m.feed, strings.Join(m.bestMissing, ", "))
}

// record maps a data row; blank rows yield nil. When two columns resolve to
// the same field the first non-empty value wins.
func (m *rowMapper) record(cells []string) domain.RawRecord {
	var rec domain.RawRecord
	for i, cell := range cells {
		if i >= len(m.columns) || m.columns[i] == "" {
			continue
		}
		v := strings.TrimSpace(cell)
		if v == "" {
			continue
		}
		if rec == nil {
			rec = make(domain.RawRecord, len(m.columns))
		}
		if _, exists := rec[m.columns[i]]; !exists {
			rec[m.columns[i]] = v
		}
	}
	return rec
}

func resolveColumns(cells []string) ([]string, int) {
	columns := make([]string, len(cells))
	hits := 0
	for i, cell := range cells {
		if canon, ok := Resolve(cell); ok {
			columns[i] = canon
			hits++
		}
	}
	return columns, hits
}

// missingGroups returns a description of every required group with no column present.
func missingGroups(feed domain.Feed, columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c != "" {
			present[c] = true
		}
	}

	var missing []string
	for _, group := range requiredFields(feed) {
		found := false
		for _, f := range group {
			if present[f] {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, strings.Join(group, "|"))
		}
	}
	return missing
}
