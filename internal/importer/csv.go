// Package importer reads bulk record imports.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SscSPs/esiti_settimanali/internal/apperrors"
	"github.com/SscSPs/esiti_settimanali/internal/dto"
)

// Required columns, in any order. Header names are matched case-insensitively.
var RequiredColumns = []string{"name", "negativo", "cauzione", "versamenti_settimanali", "disponibilita"}

// Optional hierarchy columns. They are only honoured by stores that keep hierarchy columns.
const (
	ColumnLevel    = "level"
	ColumnParentID = "parent_id"
)

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) ([]dto.ImportRecordRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a comma separated import. Quoted fields may contain commas and doubled
// quotes. Blank lines are skipped. Amount cells are returned as written; rows with a
// blank name are returned too and left for the caller to drop.
func Parse(r io.Reader) ([]dto.ImportRecordRow, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", apperrors.ErrImportEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable CSV: %v", apperrors.ErrValidation, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, k := range RequiredColumns {
		if _, ok := col[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: invalid CSV header, missing %s", apperrors.ErrValidation, strings.Join(missing, ", "))
	}

	var out []dto.ImportRecordRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: unreadable CSV: %v", apperrors.ErrValidation, err)
		}
		line, _ := cr.FieldPos(0)
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if isBlank(rec) {
			continue
		}
		out = append(out, dto.ImportRecordRow{
			Line:                  line,
			Name:                  get("name"),
			Negativo:              get("negativo"),
			Cauzione:              get("cauzione"),
			VersamentiSettimanali: get("versamenti_settimanali"),
			Disponibilita:         get("disponibilita"),
			Level:                 get(ColumnLevel),
			ParentID:              get(ColumnParentID),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no data rows", apperrors.ErrImportEmpty)
	}
	return out, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
