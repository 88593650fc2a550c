package renderer

import (
	"bytes"
	"embed"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/template"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.json testdata/*.md
var testcasesFS embed.FS

var fixPartials = flag.Bool("fix-partials", false, "if true, update failing partial test case .md files with the received output")

func TestFixPartialsIsOff(t *testing.T) {
	if *fixPartials {
		t.Fatal("-fix-partials is enabled. This flag should only be used for updating test fixtures and must be disabled for regular tests.")
	}
}

// scenario returns the valuation of 1000 split evenly between AAPL (100 then
// 110) and GOOG (200 then 190).
func scenario(t *testing.T) *whatif.Result {
	t.Helper()
	d := func(day int) date.Date { return date.New(2024, 1, day) }
	half := decimal.RequireFromString("0.5")
	spec := whatif.PortfolioSpec{
		Initial: decimal.NewFromInt(1000),
		Start:   d(1),
		Assets:  []whatif.Asset{{Symbol: "AAPL", Portion: half}, {Symbol: "GOOG", Portion: half}},
	}
	histories := whatif.PriceHistory{
		"AAPL": {Status: whatif.StatusOK, Observations: []whatif.PriceObservation{
			{Date: d(2), Close: decimal.NewFromInt(110)},
			{Date: d(1), Close: decimal.NewFromInt(100)},
		}},
		"GOOG": {Status: whatif.StatusOK, Observations: []whatif.PriceObservation{
			{Date: d(1), Close: decimal.NewFromInt(200)},
			{Date: d(2), Close: decimal.NewFromInt(190)},
		}},
	}
	v, err := whatif.ComputeValuation(spec, histories)
	require.NoError(t, err)
	return &whatif.Result{Seq: 1, Spec: spec, Range: date.Between(d(1), d(31)), Valuation: v}
}

func loadReport(t *testing.T) *Report {
	t.Helper()
	data, err := testcasesFS.ReadFile("testdata/valuation.json")
	require.NoError(t, err)
	var r Report
	require.NoError(t, json.Unmarshal(data, &r))
	return &r
}

func TestNewReport(t *testing.T) {
	got := NewReport(scenario(t))
	assert.Equal(t, loadReport(t), got)
}

func TestTemplatePartials(t *testing.T) {
	for _, name := range []string{"valuation_title", "valuation_assets", "valuation_series"} {
		t.Run(name, func(t *testing.T) {
			content, err := templates.ReadFile(name + ".md")
			require.NoError(t, err)
			tmpl, err := template.New(name).Parse(string(content))
			require.NoError(t, err)

			var b strings.Builder
			require.NoError(t, tmpl.Execute(&b, loadReport(t)))
			checkGolden(t, "testdata/"+name+".md", b.String())
		})
	}
}

func TestRenderValuation(t *testing.T) {
	got, err := RenderValuation(loadReport(t))
	require.NoError(t, err)
	checkGolden(t, "testdata/valuation_assembly.md", got)
}

func TestRenderSummary(t *testing.T) {
	got, err := RenderSummary(loadReport(t))
	require.NoError(t, err)
	assert.Contains(t, got, "## Assets")
	assert.NotContains(t, got, "## Value over time")
}

func TestRows_CarryForward(t *testing.T) {
	v := &whatif.Valuation{
		Series: []whatif.ValueSeries{
			{Name: "A", Points: []whatif.ValuePoint{
				{Date: date.New(2024, 1, 1), Value: decimal.NewFromInt(10)},
				{Date: date.New(2024, 1, 3), Value: decimal.NewFromInt(30)},
			}},
			{Name: "B", Points: []whatif.ValuePoint{
				{Date: date.New(2024, 1, 2), Value: decimal.NewFromInt(4)},
			}},
		},
		Total: whatif.ValueSeries{Name: whatif.TotalSeriesName, Points: []whatif.ValuePoint{
			{Date: date.New(2024, 1, 1), Value: decimal.NewFromInt(10)},
			{Date: date.New(2024, 1, 2), Value: decimal.NewFromInt(14)},
			{Date: date.New(2024, 1, 3), Value: decimal.NewFromInt(34)},
		}},
	}
	want := []Row{
		{Date: "2024-01-01", Values: []string{"$10.00", "-"}, Total: "$10.00"},
		{Date: "2024-01-02", Values: []string{"$10.00", "$4.00"}, Total: "$14.00"},
		{Date: "2024-01-03", Values: []string{"$30.00", "$4.00"}, Total: "$34.00"},
	}
	got := rows(v, "USD")
	assert.Equal(t, want, got)
}

func TestFormatMoney(t *testing.T) {
	testCases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1025", "USD", "$1,025.00"},
		{"0.005", "USD", "$0.01"},
		{"-12.5", "USD", "-$12.50"},
		{"12.345", "XYZ", "12.35 XYZ"},
	}
	for _, tc := range testCases {
		got := formatMoney(decimal.RequireFromString(tc.amount), tc.currency)
		if got != tc.want {
			t.Errorf("formatMoney(%s, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestFormatReturn(t *testing.T) {
	testCases := []struct {
		invested, value string
		want            string
	}{
		{"1000", "1025", "+2.50%"},
		{"500", "475", "-5.00%"},
		{"500", "500", "0.00%"},
		{"0", "0", "-"},
	}
	for _, tc := range testCases {
		got := formatReturn(decimal.RequireFromString(tc.invested), decimal.RequireFromString(tc.value))
		if got != tc.want {
			t.Errorf("formatReturn(%s, %s) = %q, want %q", tc.invested, tc.value, got, tc.want)
		}
	}
}

func TestHTML(t *testing.T) {
	md, err := RenderValuation(loadReport(t))
	require.NoError(t, err)
	got, err := HTML(md)
	require.NoError(t, err)
	assert.Contains(t, got, "<h1>What if $1,000.00 had been invested on 2024-01-01</h1>")
	assert.Contains(t, got, "<table>")
	assert.Contains(t, got, ">AAPL</td>")
}

func TestTerminal(t *testing.T) {
	md, err := RenderValuation(loadReport(t))
	require.NoError(t, err)
	got, err := Terminal(md, "notty", 120)
	require.NoError(t, err)
	assert.Contains(t, got, "AAPL")
	assert.Contains(t, got, "$1,025.00")
}

func TestRenderChart(t *testing.T) {
	res := scenario(t)

	png, err := RenderChart(res, PNG)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")), "not a png")

	svg, err := RenderChart(res, SVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestRenderChart_TooShort(t *testing.T) {
	res := scenario(t)
	res.Valuation.Total.Points = res.Valuation.Total.Points[:1]
	_, err := RenderChart(res, PNG)
	assert.Error(t, err)
}

// checkGolden compares got with the golden file, or rewrites it when -fix-partials is set.
func checkGolden(t *testing.T, goldenFile, got string) {
	t.Helper()
	want, err := testcasesFS.ReadFile(goldenFile)
	require.NoError(t, err)
	if got == string(want) {
		return
	}
	if *fixPartials {
		if err := os.WriteFile(filepath.FromSlash(goldenFile), []byte(got), 0o644); err != nil {
			t.Fatalf("failed to update golden file %q: %v", goldenFile, err)
		}
		t.Logf("updated golden file %q", goldenFile)
		return
	}
	t.Errorf("mismatch for %q:\n--- want\n%s\n--- got\n%s", goldenFile, want, got)
}
