// Package obligations loads the state-published Fourth Round affordable housing
// obligations workbook into the store.
package obligations

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

// Workbook layout.
const (
	SheetName = "Final Summary"
	// HeaderRow is the zero-based index of the column header row.
	HeaderRow = 2
	// Round labels every obligation loaded from the workbook.
	Round = "fourth"
)

// Column headers, matched after trimming.
const (
	colFIPS        = "County Subdivision FIPS Code"
	colMunicode    = "DCA Municode"
	colMunicipal   = "Municipality"
	colCounty      = "County"
	colRegion      = "Region"
	colPresent     = "Present Need"
	colProspective = "Prospective Need"
	colUrbanAid    = "Qualified Urban Aid Municipality"
	colHouseholds  = "Total Households (2020 Census)"
)

// ReadWorkbook parses the summary sheet at path. Summary and total rows are skipped.
func ReadWorkbook(path string) ([]housing.Obligation, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "obligations: open workbook")
	}
	sheet, ok := f.Sheet[SheetName]
	if !ok {
		return nil, eris.Errorf("obligations: sheet %q not found", SheetName)
	}
	if len(sheet.Rows) <= HeaderRow {
		return nil, eris.Errorf("obligations: sheet %q has no header row", SheetName)
	}

	cols := make(map[string]int)
	for i, cell := range sheet.Rows[HeaderRow].Cells {
		cols[strings.TrimSpace(cell.String())] = i
	}
	if _, ok := cols[colMunicipal]; !ok {
		return nil, eris.Errorf("obligations: column %q missing", colMunicipal)
	}

	var out []housing.Obligation
	for n, row := range sheet.Rows[HeaderRow+1:] {
		if row == nil {
			continue
		}
		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[i].String())
		}

		name := get(colMunicipal)
		if skipRow(name) {
			continue
		}
		o := housing.Obligation{
			Municipality: name,
			County:       get(colCounty),
			Round:        Round,
			Region:       get(colRegion),
			FIPSCode:     get(colFIPS),
			DCAMunicode:  get(colMunicode),
			UrbanAid:     parseFlag(get(colUrbanAid)),
		}
		var perr error
		if o.PresentNeed, perr = parseCount(get(colPresent)); perr != nil {
			return nil, eris.Wrapf(perr, "obligations: row %d present need", HeaderRow+2+n)
		}
		if o.ProspectiveNeed, perr = parseCount(get(colProspective)); perr != nil {
			return nil, eris.Wrapf(perr, "obligations: row %d prospective need", HeaderRow+2+n)
		}
		if o.Households, perr = parseCount(get(colHouseholds)); perr != nil {
			return nil, eris.Wrapf(perr, "obligations: row %d households", HeaderRow+2+n)
		}
		out = append(out, o)
	}
	return out, nil
}

func skipRow(name string) bool {
	if name == "" {
		return true
	}
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "TOTAL") || strings.Contains(upper, "REGION") || upper == "NAN"
}

// parseCount reads a whole number written with optional separators or a trailing ".0".
// An empty cell is unknown.
func parseCount(raw string) (*int, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" || raw == "-" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse count %q", raw)
	}
	if f < 0 {
		return nil, eris.Errorf("negative count %q", raw)
	}
	return housing.IntPtr(int(math.Round(f))), nil
}

func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "1.0", "y", "yes", "true", "x":
		return true
	}
	return false
}

// DisplayName converts the workbook's "Edison township" form into the title-cased
// "Edison Township" used elsewhere. Names keep their entity word.
func DisplayName(name string) string {
	words := strings.Fields(name)
	if n := len(words); n > 1 {
		last := strings.ToLower(words[n-1])
		for _, e := range housing.EntityWords {
			if last == e {
				words[n-1] = strings.ToUpper(last[:1]) + last[1:]
				break
			}
		}
	}
	return strings.Join(words, " ")
}

// nameCandidates lists the stored names a workbook name may correspond to, most
// specific first.
func nameCandidates(name string) []string {
	out := []string{name}
	base, entity := housing.SplitEntity(name)
	if entity != "" && base != "" {
		out = append(out, base)
	} else {
		out = append(out, name+" Township", name+" Borough")
	}
	return out
}

// Store is the persistence the loader needs.
type Store interface {
	GetMunicipality(ctx context.Context, name string) (housing.Municipality, error)
	RegisterMunicipality(ctx context.Context, name, county string) (housing.Municipality, error)
	UpsertObligation(ctx context.Context, o housing.Obligation) error
}

// Summary counts load outcomes.
type Summary struct {
	Loaded   int
	Created  int
	NotFound int
}

// Loader writes workbook obligations to a store.
type Loader struct {
	store         Store
	createMissing bool
	logger        *zap.Logger
}

// NewLoader builds a Loader. When createMissing is set, municipalities absent from the
// store are registered with their county.
func NewLoader(st Store, createMissing bool, logger *zap.Logger) (*Loader, error) {
	if st == nil {
		return nil, eris.New("obligations: store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: st, createMissing: createMissing, logger: logger}, nil
}

// Load reads path and upserts every obligation.
func (l *Loader) Load(ctx context.Context, path string) (Summary, error) {
	rows, err := ReadWorkbook(path)
	if err != nil {
		return Summary{}, err
	}
	l.logger.Info("loading obligations workbook", zap.String("path", path), zap.Int("rows", len(rows)))

	var (
		summary  Summary
		notFound []string
	)
	for _, o := range rows {
		if err := ctx.Err(); err != nil {
			return summary, eris.Wrap(err, "obligations: load cancelled")
		}
		m, err := l.match(ctx, o.Municipality)
		switch {
		case errors.Is(err, store.ErrNotFound) && l.createMissing:
			m, err = l.store.RegisterMunicipality(ctx, DisplayName(o.Municipality), o.County)
			if err != nil {
				return summary, eris.Wrapf(err, "obligations: register %s", o.Municipality)
			}
			summary.Created++
			l.logger.Debug("registered municipality", zap.String("municipality", m.Name), zap.String("county", o.County))
		case errors.Is(err, store.ErrNotFound):
			summary.NotFound++
			notFound = append(notFound, o.Municipality)
			continue
		case err != nil:
			return summary, err
		}

		o.Municipality = m.Name
		if err := l.store.UpsertObligation(ctx, o); err != nil {
			return summary, eris.Wrapf(err, "obligations: upsert %s", o.Municipality)
		}
		summary.Loaded++
	}

	if len(notFound) > 0 {
		sample := notFound
		if len(sample) > 10 {
			sample = sample[:10]
		}
		l.logger.Warn("municipalities not found in store",
			zap.Int("count", len(notFound)),
			zap.Strings("sample", sample),
		)
	}
	l.logger.Info("obligations loaded",
		zap.Int("loaded", summary.Loaded),
		zap.Int("created", summary.Created),
		zap.Int("not_found", summary.NotFound),
	)
	return summary, nil
}

func (l *Loader) match(ctx context.Context, name string) (housing.Municipality, error) {
	for _, candidate := range nameCandidates(name) {
		m, err := l.store.GetMunicipality(ctx, candidate)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return housing.Municipality{}, eris.Wrapf(err, "obligations: lookup %s", candidate)
		}
	}
	return housing.Municipality{}, store.ErrNotFound
}
