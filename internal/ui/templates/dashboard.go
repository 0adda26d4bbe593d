// Package templates holds the dashboard page shell. The shell carries the
// sidebar navigation, the in-view filter controls and the containers the SSE
// handlers patch; chart rendering itself happens client-side from the
// patched signals.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Dashboard renders the single-page shell.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, dashboardPage)
		return err
	})
}

const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>E-Commerce Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@latest/bundles/datastar.js"></script>
<link rel="stylesheet" href="/static/dashboard.css">
</head>
<body data-signals="{section: 'overview', start: '', end: '', names: '', x: 'recency', y: 'frequency'}">
<aside class="sidebar">
<h1>Dashboard</h1>
<nav>
<button data-on-click="$section = 'overview'; @get('/sse/section?section=overview')">Overview</button>
<button data-on-click="$section = 'sales-trends'; @get('/sse/section?section=sales-trends&start=' + $start + '&end=' + $end)">Sales &amp; Revenue Trends</button>
<button data-on-click="$section = 'category-analysis'; @get('/sse/section?section=category-analysis&names=' + $names)">Product Category Analysis</button>
<button data-on-click="$section = 'customer-analysis'; @get('/sse/section?section=customer-analysis&x=' + $x + '&y=' + $y)">Customer Analysis</button>
<button data-on-click="$section = 'additional-insights'; @get('/sse/section?section=additional-insights')">Additional Insights</button>
</nav>
<div class="filters">
<label>Start <input type="date" data-bind-start></label>
<label>End <input type="date" data-bind-end></label>
<label>Categories <input type="text" placeholder="comma-separated" data-bind-names></label>
<label>X axis <select data-bind-x><option>recency</option><option>frequency</option><option>monetary</option></select></label>
<label>Y axis <select data-bind-y><option>recency</option><option>frequency</option><option>monetary</option></select></label>
<a href="/export/xlsx">Download workbook</a>
</div>
</aside>
<main data-on-load="@get('/sse/section?section=overview')">
<div id="section-content"></div>
</main>
</body>
</html>`
