package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/quantrack/quantrack/internal/cli/client"
)

// DefaultExportFile is the file analytics are exported to when none is given
const DefaultExportFile = "quantrack-analytics.json"

// Format is an analytics export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml. Empty means json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (use json or yaml)", s)
	}
}

// FormatForFile guesses the export format from a file extension
func FormatForFile(name string) Format {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}
	return FormatJSON
}

// Analytics is the organization analytics view
type Analytics struct {
	GeneratedAt  time.Time                       `json:"generated_at" yaml:"generated_at"`
	Volunteers   *client.VolunteerStats          `json:"volunteer_stats" yaml:"volunteer_stats"`
	Events       *client.EventParticipationStats `json:"event_participation_stats" yaml:"event_participation_stats"`
	Organization *client.OrganizationStats       `json:"organization_stats" yaml:"organization_stats"`
}

// LoadAnalytics fetches all three analytics resources
func LoadAnalytics(ctx context.Context, api AnalyticsAPI) (*Analytics, error) {
	var a Analytics
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		a.Volunteers, err = api.VolunteerStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		a.Events, err = api.EventParticipationStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		a.Organization, err = api.MyOrganizationStats(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.GeneratedAt = time.Now().UTC()
	return &a, nil
}

// Export writes the analytics to w
func (a *Analytics) Export(w io.Writer, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("failed to encode analytics: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("failed to encode analytics: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
