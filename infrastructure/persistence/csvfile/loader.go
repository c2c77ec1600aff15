package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"referral-backend/domain/services"
)

// Loader reads the rule table from a pair of CSV files exported from the
// authoring spreadsheet: one file of question rows, one of rule rows.
// Columns are resolved by header name, so column order in the export does
// not matter.
type Loader struct {
	questionsPath string
	rulesPath     string
	logger        *zap.Logger
}

// NewLoader creates a CSV rule table loader
func NewLoader(questionsPath, rulesPath string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		questionsPath: questionsPath,
		rulesPath:     rulesPath,
		logger:        logger,
	}
}

// LoadQuestions reads every question row of the table
func (l *Loader) LoadQuestions(ctx context.Context) ([]services.QuestionRow, error) {
	records, header, err := readCSV(l.questionsPath)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	var rows []services.QuestionRow
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := services.QuestionRow{
			Domain:     header.get(record, "domain"),
			FieldRef:   header.get(record, "field_ref"),
			Text:       header.get(record, "questions_text"),
			AnswerType: header.get(record, "answer_type"),
			Options:    header.get(record, "answer_options"),
		}
		if row.Domain == "" && row.FieldRef == "" {
			// Spreadsheet exports often carry trailing blank lines.
			continue
		}
		rows = append(rows, row)
	}

	l.logger.Debug("Loaded question rows",
		zap.String("path", l.questionsPath),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// LoadRules reads every rule row of the table
func (l *Loader) LoadRules(ctx context.Context) ([]services.RuleRow, error) {
	records, header, err := readCSV(l.rulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	var rows []services.RuleRow
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := services.RuleRow{
			Domain:         header.get(record, "domain"),
			SourceFieldRef: header.get(record, "field_ref"),
			AnswerValue:    header.get(record, "answer_value"),
			TargetFieldRef: header.get(record, "next_field_ref"),
		}
		if row.Domain == "" && row.SourceFieldRef == "" {
			continue
		}
		rows = append(rows, row)
	}

	l.logger.Debug("Loaded rule rows",
		zap.String("path", l.rulesPath),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

// headerIndex maps lowercased column names to positions
type headerIndex map[string]int

func (h headerIndex) get(record []string, column string) string {
	idx, ok := h[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func readCSV(path string) ([][]string, headerIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headerRecord, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("%s: file is empty", path)
	}
	if err != nil {
		return nil, nil, err
	}

	header := make(headerIndex, len(headerRecord))
	for i, name := range headerRecord {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		records = append(records, record)
	}

	return records, header, nil
}
