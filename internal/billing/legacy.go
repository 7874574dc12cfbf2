package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const legacyPatientTag = "PATIENT_ID:"

// legacyExpenditureKeywords drove classification in the old schema. They are
// only consulted for rows that predate the explicit direction column.
var legacyExpenditureKeywords = []string{"supplier", "purchase", "restock", "reorder", "expenditure"}

// LegacyInvoice is the subset of an unmigrated row the backfill needs.
type LegacyInvoice struct {
	ID               uuid.UUID
	Source           Source
	Direction        *Direction
	Notes            string
	CounterpartyName string
	PatientID        *uuid.UUID
}

// LegacyFix is the update applied to one row.
type LegacyFix struct {
	ID        uuid.UUID
	PatientID *uuid.UUID
	Direction Direction
	Notes     string
}

// BackfillReport summarises a backfill run.
type BackfillReport struct {
	Scanned        int `json:"scanned"`
	PatientsLinked int `json:"patients_linked"`
	Unresolved     int `json:"unresolved"`
	Classified     int `json:"classified"`
	Expenditures   int `json:"expenditures"`
}

// ParseLegacyPatientRef extracts a PATIENT_ID:<id>| tag from notes and
// returns the id together with the notes stripped of the tag. ok is false
// when no tag is present. A malformed id is stripped but yields a nil id.
func ParseLegacyPatientRef(notes string) (id *uuid.UUID, cleaned string, ok bool) {
	start := strings.Index(notes, legacyPatientTag)
	if start < 0 {
		return nil, notes, false
	}
	rest := notes[start+len(legacyPatientTag):]
	raw, tail, found := strings.Cut(rest, "|")
	if !found {
		raw, tail = rest, ""
	}
	cleaned = strings.TrimSpace(notes[:start] + tail)
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, cleaned, true
	}
	return &parsed, cleaned, true
}

// ClassifyLegacy decides the direction of a row written before direction was
// recorded. A known expenditure source wins; otherwise the notes and
// counterparty are searched for expenditure keywords.
func ClassifyLegacy(source Source, notes, counterparty string) Direction {
	if source.Expenditure() {
		return DirectionExpenditure
	}
	haystack := strings.ToLower(notes + " " + counterparty)
	for _, kw := range legacyExpenditureKeywords {
		if strings.Contains(haystack, kw) {
			return DirectionExpenditure
		}
	}
	return DirectionIncome
}

// BackfillLegacy migrates rows imported from the old schema in batches,
// walking ids in order so every row is visited once.
func (s *Service) BackfillLegacy(ctx context.Context, batchSize int) (BackfillReport, error) {
	if batchSize <= 0 {
		batchSize = 200
	}
	var (
		report BackfillReport
		after  uuid.UUID
	)
	for {
		rows, err := s.repo.ListLegacyInvoices(ctx, after, batchSize)
		if err != nil {
			return report, fmt.Errorf("list legacy invoices: %w", err)
		}
		if len(rows) == 0 {
			break
		}
		err = s.repo.WithTx(ctx, func(ctx context.Context) error {
			for _, row := range rows {
				fix, err := s.legacyFix(ctx, row, &report)
				if err != nil {
					return err
				}
				if err := s.repo.ApplyLegacyFix(ctx, fix); err != nil {
					return fmt.Errorf("invoice %s: %w", row.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return report, err
		}
		report.Scanned += len(rows)
		after = rows[len(rows)-1].ID
	}
	if report.Scanned > 0 {
		s.invalidate(ctx)
	}
	return report, nil
}

func (s *Service) legacyFix(ctx context.Context, row LegacyInvoice, report *BackfillReport) (LegacyFix, error) {
	fix := LegacyFix{ID: row.ID, Notes: row.Notes}
	if id, cleaned, ok := ParseLegacyPatientRef(row.Notes); ok {
		fix.Notes = cleaned
		if id != nil && row.PatientID == nil {
			kind, err := s.repo.ResolveCounterparty(ctx, *id)
			if err != nil {
				return fix, err
			}
			if kind == CounterpartyPatient {
				fix.PatientID = id
				report.PatientsLinked++
			} else {
				report.Unresolved++
			}
		} else if id == nil {
			report.Unresolved++
		}
	}
	if row.Direction != nil {
		fix.Direction = *row.Direction
		return fix, nil
	}
	fix.Direction = ClassifyLegacy(row.Source, row.Notes, row.CounterpartyName)
	report.Classified++
	if fix.Direction == DirectionExpenditure {
		report.Expenditures++
	}
	return fix, nil
}
