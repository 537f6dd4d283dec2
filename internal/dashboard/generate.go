// Package dashboard renders Grafana dashboards for the GreptimeDB tables
// written by the simulator.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"wifi-rssi-sim/internal/telemetry"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Tables names the tables the dashboards query.
type Tables struct {
	FlowTable  string
	FrameTable string
}

// DefaultTables returns the tables the GreptimeDB writer uses.
func DefaultTables() Tables {
	return Tables{FlowTable: telemetry.FlowTableName, FrameTable: telemetry.FrameTableName}
}

// Render executes every dashboard template and writes the results to
// outDir. Templates read datasource UIDs from the environment and fail
// when one is missing.
func Render(outDir string, tables Tables) ([]string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return nil, err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return nil, err
		}
		if err := t.Execute(f, tables); err != nil {
			f.Close()
			os.Remove(outPath)
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
