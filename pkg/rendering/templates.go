package rendering

// Built-in template sources, keyed by the same names a template directory
// override would use. Page templates end in .tmpl.html and shared partials
// in .part.html, so a file of the same name in Config.TemplateDir replaces
// the built-in version on Refresh.

// maritimeTitle is the fixed page title for the dashboard shape; the two
// newsletter shapes take theirs from the document instead.
const maritimeTitle = "Maritime Chokepoint Risk Dashboard"

const headPartial = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.Stylesheet}}"/>
</head>
<body>
`

const footPartial = `</body>
</html>
`

const newsletterTemplate = `{{template "head.part.html" .}}<h1>{{.Doc.Subject}}</h1>
<table class="production">
<tr><th>Region</th><th>Production</th></tr>
{{range .Doc.Regions}}<tr><td>{{.Name}}</td><td>{{.Production}}</td></tr>
{{end}}</table>
{{template "foot.part.html" .}}`

const refineryTemplate = `{{template "head.part.html" .}}<h1>{{.Doc.Title}}</h1>
<p class="meta">{{.Doc.Date}} | {{.Doc.Status}}</p>
<p class="overview">{{.Doc.Overview}}</p>
<div class="stats">
{{range .Doc.Stats}}<div class="stat-card"><span class="stat-label">{{.Label}}</span><span class="stat-value">{{.Value}}</span></div>
{{end}}</div>
{{range .Doc.Events}}<div class="event">
<h2>{{.Title}}</h2>
<p>{{.Body}}</p>
</div>
{{end}}{{template "foot.part.html" .}}`

const maritimeTemplate = `{{template "head.part.html" .}}<div class="summary-block {{statusClass .Doc.RiskLabel}}">
<h1>{{.Title}}</h1>
<p class="risk-index">Global Risk Index: {{.Doc.RiskIndex}} ({{.Doc.RiskLabel}})</p>
<p class="description">{{.Doc.Description}}</p>
<p class="highest">{{.Doc.HighestRisk}}</p>
<p class="distribution">Risk distribution: {{.Doc.Counts.Low}} LOW | {{.Doc.Counts.Moderate}} MODERATE | {{.Doc.Counts.High}} HIGH</p>
</div>
<div class="grid">
{{range .Doc.Points}}<div class="card {{statusClass .StatusLabel}}">
<h2>{{.Name}}</h2>
<p class="conditions">{{.Temperature}}&deg;C, wind {{.Wind}} km/h</p>
<p class="difficulty">Transit difficulty: {{.DifficultyScore}} ({{.DifficultyLabel}})</p>
<p class="outlook">{{.Outlook}}</p>
<p class="impact">{{.Impact}}</p>
{{if .RiskStrip}}<div class="risk-strip">{{range .RiskStrip}}<span class="cell" style="background:{{riskColor .}}"></span>{{end}}</div>
{{end}}{{if .Forecast}}<table class="forecast">
<tr><th>Time</th><th>Temp</th><th>Wind</th><th>Visibility</th><th>Precip</th></tr>
{{range .Forecast}}<tr><td>{{clockTime .Time}}</td><td>{{.Temperature}}</td><td>{{.Wind}}</td><td>{{.Visibility}}</td><td>{{.Precipitation}}</td></tr>
{{end}}</table>
{{end}}</div>
{{end}}</div>
{{template "foot.part.html" .}}`

// builtinTemplates maps template names to their compiled-in sources.
var builtinTemplates = map[string]string{
	"head.part.html":       headPartial,
	"foot.part.html":       footPartial,
	"newsletter.tmpl.html": newsletterTemplate,
	"refinery.tmpl.html":   refineryTemplate,
	"maritime.tmpl.html":   maritimeTemplate,
}
