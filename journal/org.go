package journal

import (
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/rustyeddy/stratlab/session"
)

var orgFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format(time.DateOnly) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"sortedKeys": func(m map[string]float64) []string {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	},
}

var orgTemplate = template.Must(template.New("session").Funcs(orgFuncs).Parse(sessionOrgTemplate))

// WriteSessionOrg renders s as an org-mode entry.
func WriteSessionOrg(w io.Writer, s *session.Session) error {
	return orgTemplate.Execute(w, s)
}

const sessionOrgTemplate = `* SESSION: {{.Name}} {{.StrategyID}} {{.Ticker}}
:PROPERTIES:
:OWNER:       {{.Owner}}
:RUN_ID:      {{if .State.RunID}}{{.State.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.StrategyID}}
:TICKER:      {{.Ticker}}
:START_DATE:  {{date .Start}}
:END_DATE:    {{date .End}}
:FREQUENCY:   {{.Frequency}}
:COMMISSION:  {{printf "%.4f" .Commission}}
:PERMANENT:   {{.Permanent}}
{{- with .Stats}}
:EQUITY:      {{printf "%.2f" .EquityFinal}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDrawdownPct}}
:TRADES:      {{.Trades}}
:WIN_RATE:    {{printf "%.2f" .WinRatePct}}
:PROFIT_FAC:  {{printf "%.2f" .ProfitFactor}}
{{- end}}
:UPDATED:     [{{(orTime .UpdatedAt).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter | Value |
|-----------+-------|
{{- $p := .State.Params}}
{{- range sortedKeys $p}}
| {{.}} | {{index $p .}} |
{{- end}}
{{- if .OptValues}}

** Optimized Values
| Parameter | Value |
|-----------+-------|
{{- $o := .OptValues}}
{{- range sortedKeys $o}}
| {{.}} | {{index $o .}} |
{{- end}}
{{- end}}
{{- with .Stats}}

** Performance Summary
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Buy & Hold:       *{{printf "%.2f" .BuyHoldReturnPct}}%*
- Sharpe:           *{{printf "%.2f" .SharpeRatio}}*
- Max Drawdown:     *{{printf "%.2f" .MaxDrawdownPct}}%*
- Win Rate:         *{{printf "%.2f" .WinRatePct}}%*
{{- end}}
{{- if .Trades}}

** Trades
| # | Side | Entry | Exit | P/L | Reason |
|---+------+-------+------+-----+--------|
{{- range $i, $t := .Trades}}
| {{$i}} | {{$t.Side}} | {{date $t.EntryTime}} | {{date $t.ExitTime}} | {{printf "%.2f" $t.PNL}} | {{$t.Reason}} |
{{- end}}
{{- end}}
`
