package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/models"
)

// Colonnes de l'export FLO.
const (
	ColMasterID             = "master_id"
	ColOrderChannel         = "order_channel"
	ColLastOrderChannel     = "last_order_channel"
	ColFirstOrderDate       = "first_order_date"
	ColLastOrderDate        = "last_order_date"
	ColLastOrderDateOnline  = "last_order_date_online"
	ColLastOrderDateOffline = "last_order_date_offline"
	ColOrderNumOnline       = "order_num_total_ever_online"
	ColOrderNumOffline      = "order_num_total_ever_offline"
	ColValueOffline         = "customer_value_total_ever_offline"
	ColValueOnline          = "customer_value_total_ever_online"
	ColInterests            = "interested_in_categories_12"
)

var requiredColumns = []string{
	ColMasterID,
	ColOrderNumOnline,
	ColOrderNumOffline,
	ColValueOnline,
	ColValueOffline,
	ColInterests,
}

var activityColumns = []string{ColLastOrderDate, ColLastOrderDateOnline, ColLastOrderDateOffline}

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
}

// ReadCSVFile ouvre path et délègue à ReadCSV.
func ReadCSVFile(path string) ([]models.ChannelRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV lit un export FLO avec en-tête (ordre des colonnes libre).
// Toutes les valeurs invalides sont remontées dans un *calculator.DataQualityError.
func ReadCSV(r io.Reader) ([]models.ChannelRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var (
		rows   []models.ChannelRow
		issues []calculator.RowIssue
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		p := rowParser{cols: cols, record: record, line: line}
		row := p.parse()
		if len(record) != len(header) {
			p.fail("record", fmt.Sprintf("expected %d fields, got %d", len(header), len(record)))
		}
		issues = append(issues, p.issues...)
		rows = append(rows, row)
	}

	if len(issues) > 0 {
		return nil, &calculator.DataQualityError{Issues: issues}
	}
	return rows, nil
}

func indexColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	hasActivity := false
	for _, c := range activityColumns {
		if _, ok := cols[c]; ok {
			hasActivity = true
		}
	}
	if !hasActivity {
		missing = append(missing, strings.Join(activityColumns, "|"))
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing column(s): %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

type rowParser struct {
	cols   map[string]int
	record []string
	line   int
	id     string
	issues []calculator.RowIssue
}

func (p *rowParser) parse() models.ChannelRow {
	p.id = p.str(ColMasterID)
	row := models.ChannelRow{
		Line:                 p.line,
		MasterID:             p.id,
		OrderChannel:         p.str(ColOrderChannel),
		LastOrderChannel:     p.str(ColLastOrderChannel),
		FirstOrderDate:       p.date(ColFirstOrderDate),
		LastOrderDate:        p.date(ColLastOrderDate),
		LastOrderDateOnline:  p.date(ColLastOrderDateOnline),
		LastOrderDateOffline: p.date(ColLastOrderDateOffline),
		OrderNumOnline:       p.number(ColOrderNumOnline),
		OrderNumOffline:      p.number(ColOrderNumOffline),
		ValueOnline:          p.number(ColValueOnline),
		ValueOffline:         p.number(ColValueOffline),
		Interests:            ParseInterests(p.str(ColInterests)),
	}
	if row.MasterID == "" {
		p.fail(ColMasterID, "missing")
	}
	return row
}

func (p *rowParser) fail(field, reason string) {
	p.issues = append(p.issues, calculator.RowIssue{Line: p.line, CustomerID: p.id, Field: field, Reason: reason})
}

func (p *rowParser) str(col string) string {
	i, ok := p.cols[col]
	if !ok || i >= len(p.record) {
		return ""
	}
	return strings.TrimSpace(p.record[i])
}

// date : vide = absente (zéro), sinon doit être parsable
func (p *rowParser) date(col string) time.Time {
	raw := p.str(col)
	if raw == "" {
		return time.Time{}
	}
	t, err := ParseDate(raw)
	if err != nil {
		p.fail(col, fmt.Sprintf("invalid date %q", raw))
	}
	return t
}

func (p *rowParser) number(col string) float64 {
	raw := p.str(col)
	if raw == "" {
		p.fail(col, "missing")
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(col, fmt.Sprintf("invalid number %q", raw))
		return 0
	}
	return v
}

// ParseDate accepte YYYY-MM-DD, "YYYY-MM-DD HH:MM:SS" et RFC3339, en UTC.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// ParseInterests("[ERKEK, COCUK, KADIN]") -> [ERKEK COCUK KADIN]
func ParseInterests(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		tag := strings.Trim(strings.TrimSpace(part), `'"`)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
