package aggregator

import (
	"errors"

	"rssagg/models"
	"rssagg/parser"
	"rssagg/proxy"
)

// Classify maps an error onto the closed set of load failure kinds.
func Classify(err error) models.ErrorKind {
	var parsingErr *parser.ParsingError
	var netErr *proxy.NetworkError

	switch {
	case errors.As(err, &parsingErr):
		return models.KindParsing
	case errors.As(err, &netErr):
		return models.KindNetwork
	default:
		return models.KindUnknown
	}
}
