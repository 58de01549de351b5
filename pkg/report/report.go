package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ryzenmon/ryzenmon/pkg/db"
)

// ReportData contains all data needed for report generation
type ReportData struct {
	Session     *db.Session
	Stats       *db.SessionStats
	GeneratedAt time.Time
	Summary     []SummaryRow
}

// SummaryRow is one aggregated metric for display
type SummaryRow struct {
	Name string
	Min  string
	Max  string
	Avg  string
	Unit string
}

// Generator creates reports from recorded sessions
type Generator struct {
	database *db.DB
}

// NewGenerator creates a new report generator
func NewGenerator(database *db.DB) *Generator {
	return &Generator{
		database: database,
	}
}

// GenerateHTML generates an HTML report for a session
func (g *Generator) GenerateHTML(sessionID int64) (string, error) {
	// Load data
	data, err := g.loadReportData(sessionID)
	if err != nil {
		return "", err
	}

	// Load template
	tmpl, err := g.loadHTMLTemplate()
	if err != nil {
		return "", err
	}

	// Execute template
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// loadReportData loads all data needed for a report
func (g *Generator) loadReportData(sessionID int64) (*ReportData, error) {
	// Get session
	session, err := g.database.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	// Compute aggregates in SQL
	stats, err := g.database.SessionStats(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}

	data := &ReportData{
		Session:     session,
		Stats:       stats,
		GeneratedAt: time.Now(),
		Summary:     summaryRows(stats),
	}

	return data, nil
}

// summaryRows flattens the aggregates into the display table
func summaryRows(stats *db.SessionStats) []SummaryRow {
	f := func(v float64) string { return fmt.Sprintf("%.2f", v) }
	return []SummaryRow{
		{
			Name: "Socket Power",
			Min:  f(stats.MinSocketPower), Max: f(stats.MaxSocketPower), Avg: f(stats.AvgSocketPower),
			Unit: "W",
		},
		{
			Name: "Package Power",
			Min:  f(stats.MinPackagePower), Max: f(stats.MaxPackagePower), Avg: f(stats.AvgPackagePower),
			Unit: "W",
		},
		{
			Name: "Peak Core Temperature",
			Min:  f(stats.MinPeakTemp), Max: f(stats.MaxPeakTemp), Avg: f(stats.AvgPeakTemp),
			Unit: "°C",
		},
		{
			Name: "Peak Core Frequency",
			Min:  "", Max: f(stats.MaxPeakFreq), Avg: f(stats.AvgPeakFreq),
			Unit: "MHz",
		},
		{
			Name: "Average Core Voltage",
			Min:  "", Max: "", Avg: fmt.Sprintf("%.4f", stats.AvgVoltage),
			Unit: "V",
		},
	}
}

// loadHTMLTemplate loads the HTML report template
func (g *Generator) loadHTMLTemplate() (*template.Template, error) {
	// Define template functions
	funcMap := template.FuncMap{
		// Accepts both time.Time and the session's nullable *time.Time.
		"formatTime": func(v interface{}) string {
			switch t := v.(type) {
			case time.Time:
				return t.Format("2006-01-02 15:04:05")
			case *time.Time:
				if t == nil {
					return ""
				}
				return t.Format("2006-01-02 15:04:05")
			}
			return ""
		},
		"formatDuration": func(d time.Duration) string {
			return fmt.Sprintf("%.2f seconds", d.Seconds())
		},
		"formatInterval": func(ms int64) string {
			return (time.Duration(ms) * time.Millisecond).String()
		},
		"tableVersion": func(v uint32) string {
			return fmt.Sprintf("%#x", v)
		},
		"label": func(s string) string {
			if s == "" {
				return "(unlabeled)"
			}
			return s
		},
	}

	// Parse template
	tmpl := template.New("report").Funcs(funcMap)
	tmpl, err := tmpl.Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return tmpl, nil
}

// htmlTemplate is the default HTML report template
const htmlTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Telemetry Report - Session #{{.Session.ID}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            background-color: white;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
            padding: 30px;
        }
        h1, h2, h3 {
            color: #2c3e50;
        }
        .header {
            border-bottom: 3px solid #E8412C;
            padding-bottom: 20px;
            margin-bottom: 30px;
        }
        .info-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin: 20px 0;
        }
        .info-card {
            background-color: #f8f9fa;
            padding: 15px;
            border-radius: 4px;
            border-left: 4px solid #E8412C;
        }
        .info-card h3 {
            margin: 0 0 10px 0;
            color: #666;
            font-size: 0.9em;
            text-transform: uppercase;
        }
        .info-card p {
            margin: 0;
            font-size: 1.1em;
            font-weight: 500;
        }
        .metrics-section {
            margin: 30px 0;
        }
        .metrics-table {
            width: 100%;
            border-collapse: collapse;
        }
        .metrics-table th,
        .metrics-table td {
            padding: 10px;
            text-align: left;
            border-bottom: 1px solid #e0e0e0;
        }
        .metrics-table th {
            background-color: #f8f9fa;
            font-weight: 600;
            color: #666;
        }
        .metrics-table tr:last-child td {
            border-bottom: none;
        }
        .footer {
            margin-top: 40px;
            padding-top: 20px;
            border-top: 1px solid #e0e0e0;
            text-align: center;
            color: #666;
            font-size: 0.9em;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Telemetry Report</h1>
            <p>Session #{{.Session.ID}} | {{label .Session.Label}} | {{.Session.CPUName}} ({{.Session.Codename}})</p>
        </div>

        <div class="info-grid">
            <div class="info-card">
                <h3>Start Time</h3>
                <p>{{formatTime .Session.StartTime}}</p>
            </div>
            <div class="info-card">
                <h3>End Time</h3>
                <p>{{if .Session.EndTime}}{{formatTime .Session.EndTime}}{{else}}Still Recording{{end}}</p>
            </div>
            <div class="info-card">
                <h3>Duration</h3>
                <p>{{if .Session.EndTime}}{{formatDuration .Session.Duration}}{{else}}N/A{{end}}</p>
            </div>
            <div class="info-card">
                <h3>Sample Interval</h3>
                <p>{{formatInterval .Session.Interval}}</p>
            </div>
            <div class="info-card">
                <h3>Samples</h3>
                <p>{{.Stats.SampleCount}}</p>
            </div>
            <div class="info-card">
                <h3>PM Table Version</h3>
                <p>{{tableVersion .Session.PMTableVersion}}</p>
            </div>
        </div>

        <div class="metrics-section">
            <h2>Session Summary</h2>
            <table class="metrics-table">
                <thead>
                    <tr>
                        <th>Metric</th>
                        <th>Min</th>
                        <th>Max</th>
                        <th>Avg</th>
                        <th>Unit</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Summary}}
                    <tr>
                        <td>{{.Name}}</td>
                        <td>{{.Min}}</td>
                        <td>{{.Max}}</td>
                        <td>{{.Avg}}</td>
                        <td>{{.Unit}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>

        <div class="footer">
            <p>Generated by ryzenmon on {{formatTime .GeneratedAt}}</p>
        </div>
    </div>
</body>
</html>
`
