package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/mwhite/noisebox/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"orIdle": func(s string) string {
		if s == "" {
			return "IDLE"
		}
		return s
	},
	"bpm": func(v int) string {
		if v < 0 {
			return "—"
		}
		return fmt.Sprintf("%d", v)
	},
	"scheduled": func(v int) string {
		if v < 0 {
			return "none"
		}
		return fmt.Sprintf("%d", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Noisebox</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; }
</style>
</head>
<body>
<h1>Noisebox</h1>
<table>
<tr><th>Playing</th><td>{{if .Playing}}<span class="on">YES</span>{{else}}<span class="off">NO</span>{{end}}</td></tr>
<tr><th>Effective volume</th><td>{{.EffectiveVolume}}</td></tr>
<tr><th>Manual volume</th><td>{{.ManualVolume}}</td></tr>
<tr><th>Scheduled volume</th><td>{{scheduled .ScheduledVolume}}</td></tr>
<tr><th>Schedule ranges</th><td>{{.ScheduleRanges}}</td></tr>
<tr><th>Sensor link</th><td>{{orIdle .LinkState}}</td></tr>
<tr><th>Last heart rate</th><td>{{bpm .LastBPM}} bpm</td></tr>
<tr><th>Clock</th><td>{{if eq .ClockState "SYNCED"}}{{.ClockState}}{{else}}<span class="warn">{{orIdle .ClockState}}</span>{{end}}</td></tr>
<tr><th>Readings logged</th><td>{{.Counts.Readings}}</td></tr>
<tr><th>Stream loops</th><td>{{.Counts.Loops}}</td></tr>
<tr><th>Link reconnects</th><td>{{.Counts.Reconnects}}</td></tr>
<tr><th>MQTT</th><td>{{if .Config.Broker}}{{if .MQTTConnected}}<span class="on">connected</span>{{else}}<span class="warn">disconnected</span>{{end}} ({{.Config.Broker}}){{else}}disabled{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
</table>
<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	if err := indexTmpl.Execute(w, snap); err != nil {
		log.Printf("render status page: %v", err)
	}
}
