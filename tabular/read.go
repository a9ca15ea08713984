package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/theoremus-urban-solutions/railtrips/trips"
)

type column int

const (
	colLastName column = iota
	colFirstName
	colReference
	colOrigin
	colDestination
	colTrainType
	numColumns
)

var columnNames = [numColumns]string{"last_name", "first_name", "reference", "origin", "destination", "train_type"}

// headerAliases maps a normalized header to its column.
var headerAliases = map[string]column{
	"LAST NAME":   colLastName,
	"LASTNAME":    colLastName,
	"NOM":         colLastName,
	"FIRST NAME":  colFirstName,
	"FIRSTNAME":   colFirstName,
	"PRENOM":      colFirstName,
	"REFERENCE":   colReference,
	"REF":         colReference,
	"ORIGIN":      colOrigin,
	"DEPART":      colOrigin,
	"DESTINATION": colDestination,
	"TRAIN TYPE":  colTrainType,
	"TRAINTYPE":   colTrainType,
	"TRAIN CLASS": colTrainType,
}

var utf8BOM = []byte("\xef\xbb\xbf")

var required = []column{colLastName, colReference, colOrigin, colDestination}

// ErrBadShape reports input that is not a trip table.
var ErrBadShape = errors.New("not a trip table")

// ReadTrips parses a trip table. A missing required column or a row with the
// wrong number of fields fails the whole read.
func ReadTrips(r io.Reader) ([]trips.TripRecord, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read trips: %w", err)
	}
	if bytes.HasPrefix(first, utf8BOM) {
		_, _ = br.Discard(3)
		first = first[3:]
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(first)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read trips: %w: empty input", ErrBadShape)
	}
	if err != nil {
		return nil, fmt.Errorf("read trips header: %w", err)
	}
	idx, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var out []trips.TripRecord
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read trips: %w: %v", ErrBadShape, err)
		}
		if blank(fields) {
			continue
		}
		get := func(c column) string {
			if idx[c] < 0 {
				return ""
			}
			return strings.TrimSpace(fields[idx[c]])
		}
		out = append(out, trips.TripRecord{
			Traveler:    trips.TravelerKey{LastName: get(colLastName), FirstName: get(colFirstName)},
			Reference:   get(colReference),
			Origin:      get(colOrigin),
			Destination: get(colDestination),
			TrainClass:  trips.ParseTrainClass(get(colTrainType)),
		})
	}
	return out, nil
}

func mapHeader(header []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		c, ok := headerAliases[trips.NormalizeCity(h).String()]
		if !ok || idx[c] >= 0 {
			continue
		}
		idx[c] = i
	}
	var missing []string
	for _, c := range required {
		if idx[c] < 0 {
			missing = append(missing, columnNames[c])
		}
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("read trips: %w: missing columns %s", ErrBadShape, strings.Join(missing, ", "))
	}
	return idx, nil
}

// sniffDelimiter picks ';' when the header line has more semicolons than
// commas.
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
