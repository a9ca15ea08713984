package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/theoremus-urban-solutions/railtrips/trips"
)

// OutputHeader lists the columns written by WriteTrips.
var OutputHeader = []string{
	"last_name", "first_name", "reference", "origin", "destination", "train_type",
	"parity_flag", "circular_flag",
	"distance_km", "lgv_km", "ter_km", "unknown_km",
	"lgv_pct", "ter_pct", "unknown_pct",
	"crow_km", "warnings",
}

// WriteTrips writes rows as CSV. Fields that were not computed are empty;
// warnings are joined with ';'.
func WriteTrips(w io.Writer, rows []trips.AnnotatedTrip) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutputHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write trips: %w", err)
	}
	return nil
}

func record(row trips.AnnotatedTrip) []string {
	r := row.Record
	out := []string{
		r.Traveler.LastName, r.Traveler.FirstName, r.Reference, r.Origin, r.Destination, string(r.TrainClass),
		"", "",
		"", "", "", "",
		"", "", "",
		"", "",
	}
	if v := row.Verification; v != nil {
		out[6], out[7] = string(v.Parity), string(v.Circular)
	}
	if b := row.Distance; b != nil {
		out[8] = num(b.TotalKM)
		out[9] = num(b.HighSpeedKM)
		out[10] = num(b.ConventionalKM)
		out[11] = num(b.UnknownKM)
		out[12] = num(b.HighSpeedPct())
		out[13] = num(b.ConventionalPct())
		out[14] = num(b.UnknownPct())
	}
	if row.CrowKM != nil {
		out[15] = num(*row.CrowKM)
	}
	if len(row.Warnings) > 0 {
		ws := make([]string, len(row.Warnings))
		for i, w := range row.Warnings {
			ws[i] = string(w)
		}
		out[16] = strings.Join(ws, ";")
	}
	return out
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
