package formatter

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/fatih/color"

	"github.com/gnoswap-labs/degoto/internal/frontend"
)

const tabWidth = 8

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	nameStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	successStyle = color.New(color.FgGreen, color.Bold)
	infoStyle    = color.New(color.FgWhite)
)

// SourceCode holds the lines of a file for snippets.
type SourceCode struct {
	Lines []string
}

// ReadSourceCode loads filename for use in snippets.
func ReadSourceCode(filename string) (*SourceCode, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewSourceCode(content), nil
}

// NewSourceCode splits content into lines.
func NewSourceCode(content []byte) *SourceCode {
	return &SourceCode{Lines: strings.Split(string(content), "\n")}
}

// reportFormatter supplies the template for one kind of outcome.
type reportFormatter interface {
	ReportTemplate() string
}

func getReportFormatter(status frontend.Status) reportFormatter {
	switch status {
	case frontend.StatusSkipped:
		return &SkippedFormatter{}
	case frontend.StatusFailed:
		return &FailedFormatter{}
	default:
		return &RewrittenFormatter{}
	}
}

// GenerateFormattedReport renders one block per function of filename.
func GenerateFormattedReport(filename string, funcs []frontend.Summary, src *SourceCode) string {
	var builder strings.Builder
	for _, fn := range funcs {
		builder.WriteString(buildReport(filename, fn, src, getReportFormatter(fn.Status)))
	}
	return builder.String()
}

type ReportData struct {
	frontend.Summary
	Filename        string
	Padding         string
	MaxLineNumWidth int
	SnippetLines    []string
}

func buildReport(filename string, fn frontend.Summary, src *SourceCode, f reportFormatter) string {
	width := calculateMaxLineNumWidth(fn.Line)
	data := ReportData{
		Summary:         fn,
		Filename:        filename,
		Padding:         strings.Repeat(" ", width+1),
		MaxLineNumWidth: width,
	}
	if src != nil {
		data.SnippetLines = src.Lines
	}

	funcMap := template.FuncMap{
		"header":     header,
		"snippet":    codeSnippet,
		"stats":      stats,
		"complexity": complexity,
		"verdict":    verdict,
		"message":    message,
	}
	tmpl := template.Must(template.New("report").Funcs(funcMap).Parse(f.ReportTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting report: %v", err)
	}
	return buf.String()
}

// utils functions used in the text templates

func header(status frontend.Status, name string, maxLineNumWidth int, filename string, line, column int) string {
	var out string
	switch status {
	case frontend.StatusFailed:
		out = errorStyle.Sprint("error: ")
	case frontend.StatusSkipped:
		out = warningStyle.Sprint("skipped: ")
	default:
		out = successStyle.Sprint("rewritten: ")
	}
	out += nameStyle.Sprintf("%s\n", name)
	out += lineStyle.Sprintf("%s--> ", strings.Repeat(" ", maxLineNumWidth))
	out += fileStyle.Sprintf("%s:%d:%d\n", filename, line, column)
	return out
}

func codeSnippet(lines []string, line, maxLineNumWidth int, padding string) string {
	out := lineStyle.Sprintf("%s|\n", padding)
	if line < 1 || line > len(lines) {
		return out
	}
	text := strings.TrimLeft(expandTabs(lines[line-1]), " ")
	out += lineStyle.Sprintf("%*d | ", maxLineNumWidth, line)
	out += text + "\n"
	return out
}

func stats(padding string, gotos, rounds, moves, flags, temps int) string {
	out := lineStyle.Sprintf("%s= ", padding)
	out += infoStyle.Sprintf("removed %s in %s (%s), introduced %s",
		plural(gotos, "goto"), plural(rounds, "round"), plural(moves, "move"), plural(flags, "flag"))
	if temps > 0 {
		out += infoStyle.Sprintf(" and %s", plural(temps, "temporary"))
	}
	return out + "\n"
}

func complexity(padding string, before, after int) string {
	return lineStyle.Sprintf("%s= ", padding) +
		infoStyle.Sprintf("cyclomatic complexity %d -> %d\n", before, after)
}

func verdict(padding, v string) string {
	if v == "" {
		return ""
	}
	style := successStyle
	if !strings.HasPrefix(v, "Equivalent") {
		style = warningStyle
	}
	return lineStyle.Sprintf("%s= ", padding) + style.Sprintf("verified: %s\n", v)
}

func message(padding, text string) string {
	return lineStyle.Sprintf("%s= ", padding) + messageStyle.Sprintf("%s\n", text)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	if strings.HasSuffix(word, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(word, "y"))
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// FormatTotals renders the closing summary line of a run.
func FormatTotals(files, rewritten, skipped, failed int) string {
	out := successStyle.Sprintf("%s rewritten", plural(rewritten, "function"))
	out += infoStyle.Sprintf(", %d skipped, ", skipped)
	if failed > 0 {
		out += errorStyle.Sprintf("%d failed", failed)
	} else {
		out += infoStyle.Sprint("0 failed")
	}
	out += infoStyle.Sprintf(" in %s\n", plural(files, "file"))
	return out
}

func calculateMaxLineNumWidth(line int) int {
	return len(fmt.Sprintf("%d", line))
}

// expandTabs replaces tabs with spaces up to the next tab stop.
func expandTabs(line string) string {
	var sb strings.Builder
	col := 0
	for _, ch := range line {
		if ch == '\t' {
			n := tabWidth - col%tabWidth
			sb.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		sb.WriteRune(ch)
		col++
	}
	return sb.String()
}
