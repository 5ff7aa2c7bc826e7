package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

const agreedPriceMarker = "AGREED_PRICE:"

type ExtractionStatus int

const (
	NoMarker ExtractionStatus = iota
	Agreed
	Malformed
)

func (s ExtractionStatus) String() string {
	switch s {
	case Agreed:
		return "agreed"
	case Malformed:
		return "malformed"
	default:
		return "no_marker"
	}
}

type PriceExtraction struct {
	Status ExtractionStatus
	Price  int64
}

// PriceParser pulls a binding agreed price out of an agent reply.
type PriceParser interface {
	Parse(reply string) PriceExtraction
}

var markerPattern = regexp.MustCompile(`AGREED_PRICE:\s*(\d+)`)

// MarkerParser reads the literal "AGREED_PRICE: <integer>" marker. Prose
// numbers are never inferred.
type MarkerParser struct{}

func (MarkerParser) Parse(reply string) PriceExtraction {
	if !strings.Contains(reply, agreedPriceMarker) {
		return PriceExtraction{Status: NoMarker}
	}
	m := markerPattern.FindStringSubmatch(reply)
	if m == nil {
		return PriceExtraction{Status: Malformed}
	}
	price, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return PriceExtraction{Status: Malformed}
	}
	return PriceExtraction{Status: Agreed, Price: price}
}
