package pdf

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"taskhub/internal/models"
)

// Generator renders reports; easy to fake in handler tests.
type Generator interface {
	ActivityReport(w io.Writer, data ActivityReportData) error
}

// ReportGenerator uses the TTF at FontPath when set and falls back to the
// core Helvetica font, which only covers Latin-1.
type ReportGenerator struct {
	FontPath string
	fontName string
}

type ActivityReportData struct {
	Title       string
	GeneratedAt time.Time
	GeneratedBy string
	Entries     []models.ActivityLog
}

func NewReportGenerator(fontPath string) *ReportGenerator {
	name := "Helvetica"
	if fontPath != "" {
		name = "DejaVu"
	}
	return &ReportGenerator{FontPath: fontPath, fontName: name}
}

func (g *ReportGenerator) ActivityReport(w io.Writer, data ActivityReportData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	title := data.Title
	if title == "" {
		title = "Task activity report"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("Task Management System", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	g.addFont(pdf)
	tr := g.translator(pdf)

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	sub := fmt.Sprintf("Generated %s", data.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	if data.GeneratedBy != "" {
		sub += " by " + data.GeneratedBy
	}
	pdf.CellFormat(0, 7, tr(sub), "", 1, "C", false, 0, "")
	g.hr(pdf)

	if len(data.Entries) == 0 {
		pdf.Ln(4)
		pdf.CellFormat(0, 7, "No activity recorded.", "", 1, "L", false, 0, "")
	}
	for _, e := range data.Entries {
		taskLabel := fmt.Sprintf("Task #%d", e.TaskID)
		if e.TaskTitle != "" {
			taskLabel += " " + e.TaskTitle
		}
		g.sectionTitle(pdf, tr(taskLabel))

		by := e.UpdatedByName
		if by == "" {
			by = fmt.Sprintf("user #%d", e.UpdatedBy)
		}
		g.kvLine(pdf, "Changed by", tr(by))
		g.kvLine(pdf, "At", e.UpdatedAt.UTC().Format(time.RFC3339))
		for _, ch := range e.Changes {
			pdf.SetFont(g.fontName, "", 10)
			line := fmt.Sprintf("%s: %s -> %s", ch.Field, orDash(ch.OldValue), orDash(ch.NewValue))
			pdf.MultiCell(0, 5, tr(line), "", "L", false)
		}
		pdf.Ln(1)
		g.hr(pdf)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render activity report: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func (g *ReportGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *ReportGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 10)
	pdf.CellFormat(30, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *ReportGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *ReportGenerator) addFont(pdf *gofpdf.Fpdf) {
	if g.FontPath == "" {
		return
	}
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}

// translator maps UTF-8 to the core font's code page; a TTF needs none.
func (g *ReportGenerator) translator(pdf *gofpdf.Fpdf) func(string) string {
	if g.FontPath != "" {
		return func(s string) string { return s }
	}
	return pdf.UnicodeTranslatorFromDescriptor("")
}
