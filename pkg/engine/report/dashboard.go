package report

import (
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/version"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"rfc3339": func(t time.Time) string {
		return t.Format(time.RFC3339)
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.App}} Diagnostics {{.Doc.RunID}}</title>
    <style>
        :root { --bg: #050505; --surface: rgba(255,255,255,0.03); --border: rgba(255,255,255,0.1); --text: #e6e6e6; }
        body { background: var(--bg); color: var(--text); font-family: ui-monospace, monospace; margin: 2rem; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
        th, td { border-bottom: 1px solid var(--border); padding: .4rem .6rem; text-align: left; }
        .critical { color: #FF3366; } .high { color: #FF9933; } .medium { color: #FFD700; } .low { color: #00FF99; }
        .card { background: var(--surface); border: 1px solid var(--border); padding: 1rem; display: inline-block; margin-right: 1rem; }
    </style>
</head>
<body>
    <h1>{{.App}} run {{.Doc.RunID}}</h1>
    <p>Snapshot v{{.Doc.SnapshotVersion}} generated {{rfc3339 .Doc.GeneratedAt}}</p>
    <div>
        <div class="card">Assets<br><strong>{{.Doc.Summary.Assets}}</strong></div>
        <div class="card">Relationships<br><strong>{{.Doc.Summary.Relationships}}</strong></div>
        <div class="card">Findings<br><strong>{{.Doc.Summary.Findings}}</strong></div>
        <div class="card">Highest<br><strong class="{{.Doc.Summary.MaxSeverity}}">{{upper .Doc.Summary.MaxSeverity}}</strong></div>
    </div>
    <h2>Analyzers</h2>
    <table>
        <tr><th>Analyzer</th><th>Status</th><th>Severity</th><th>Duration</th><th>Error</th></tr>
        {{- range .Doc.Results}}
        <tr><td>{{.Analyzer}}</td><td>{{.Status}}</td><td class="{{.Severity}}">{{.Severity}}</td><td>{{.DurationMs}}ms</td><td>{{.Error}}</td></tr>
        {{- end}}
    </table>
    <h2>Findings</h2>
    <table>
        <tr><th>Severity</th><th>Analyzer</th><th>Asset</th><th>Title</th><th>Detail</th></tr>
        {{- range .Doc.Findings}}
        <tr><td class="{{.Severity}}">{{.Severity}}</td><td>{{.Analyzer}}</td><td>{{.AssetID}}</td><td>{{.Title}}</td><td>{{.Detail}}</td></tr>
        {{- end}}
    </table>
    <canvas id="severity"></canvas>
    <script>
        const severityCounts = {{.Doc.Summary.BySeverity}};
        const assets = {{.Assets}};
    </script>
</body>
</html>
`))

// WriteHTML renders a standalone dashboard. Values are escaped for their
// context, including the data embedded in the script block.
func WriteHTML(w io.Writer, doc Document) error {
	assets := make([]string, 0, len(doc.Findings))
	for _, f := range doc.Findings {
		assets = append(assets, f.AssetID)
	}
	return dashboardTmpl.Execute(w, struct {
		App    string
		Doc    Document
		Assets []string
	}{version.AppName, doc, assets})
}
