// Package solar describes the solar-activity feeds fused with satellite
// telemetry: four NOAA SWPC / Penticton files at fixed paths under the solar
// data directory, and optionally the daily indices kept in ClickHouse.
package solar

import (
	"io"
	"path/filepath"

	"github.com/KI7MT/ki7mt-sat-fusion/internal/source"
)

// Feed defines a solar data file.
type Feed struct {
	Name       string
	URL        string
	RelPath    string // relative to the solar data directory
	TimeColumn string
	Format     source.Format
	Desc       string

	// Convert rewrites the published product into the stored format.
	Convert func(r io.Reader, w io.Writer) error
}

// Feeds are fused in this order after the satellite table.
var Feeds = []Feed{
	{
		Name:       "swpc_observed_ssn",
		URL:        "https://services.swpc.noaa.gov/json/solar-cycle/swpc_observed_ssn.json",
		RelPath:    "swpc/swpc_observed_ssn.json",
		TimeColumn: "Obsdate",
		Format:     source.FormatJSON,
		Desc:       "SWPC daily observed sunspot number",
	},
	{
		Name:       "swpc_solar_cycle_indices",
		URL:        "https://services.swpc.noaa.gov/json/solar-cycle/observed-solar-cycle-indices.json",
		RelPath:    "swpc/observed-solar-cycle-indices.json",
		TimeColumn: "time-tag",
		Format:     source.FormatJSON,
		Desc:       "SWPC monthly solar cycle indices (SSN, F10.7)",
	},
	{
		Name:       "swpc_dgd",
		URL:        "https://services.swpc.noaa.gov/text/daily-geomagnetic-indices.txt",
		RelPath:    "swpc/dgd.csv",
		TimeColumn: "Date",
		Format:     source.FormatCSV,
		Desc:       "SWPC daily geomagnetic indices (A and K)",
		Convert:    ConvertDGD,
	},
	{
		Name:       "penticton_flux",
		URL:        "https://www.spaceweather.gc.ca/solar_flux_data/daily_flux_values/fluxtable.txt",
		RelPath:    "penticton/fluxtable.txt",
		TimeColumn: "fluxdate",
		Format:     source.FormatWhitespace,
		Desc:       "Penticton 10.7cm daily flux table",
	},
}

// Spec returns the loader spec for f under solarDir.
func (f Feed) Spec(solarDir string) source.Spec {
	return source.Spec{
		Name:       f.Name,
		Path:       filepath.Join(solarDir, f.RelPath),
		Format:     f.Format,
		TimeColumn: f.TimeColumn,
	}
}

// Lookup returns the feed with the given name.
func Lookup(name string) (Feed, bool) {
	for _, f := range Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return Feed{}, false
}
