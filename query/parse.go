// Package query implements the query parser and executor: a tiny
// iCalendar-style property-line vocabulary compiled into a Query,
// executed against a calendar's indexes under one of three ordering
// strategies.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/calindex/config"
	"github.com/cyp0633/calindex/event"
	"github.com/cyp0633/calindex/geo"
	"github.com/cyp0633/calindex/internal/calerr"
	"github.com/cyp0633/calindex/recurrence"
	"github.com/cyp0633/calindex/where"
)

// Ordering is one of the three executor strategies.
type Ordering int

const (
	OrderDtStart Ordering = iota
	OrderDtStartThenGeoDist
	OrderGeoDistThenDtStart
)

// Executor binds the configuration-derived tunables (default limit,
// iterator runaway caps) to the parse and execute entry points.
type Executor struct {
	cfg config.Config
}

// NewExecutor builds an Executor running with cfg.
func NewExecutor(cfg config.Config) *Executor {
	return &Executor{cfg: cfg}
}

// Query is the parsed form of a query document.
type Query struct {
	Where where.Node

	Ordering   Ordering
	OrderPoint geo.Point

	LowerBound *recurrence.Bound
	UpperBound *recurrence.Bound

	InTimezone   string
	DistinctUIDs bool
	Offset       int
	Limit        int
}

// Parse compiles a query document with the default configuration.
func Parse(input string) (*Query, error) {
	return NewExecutor(config.Default()).Parse(input)
}

// Parse compiles a query document into a Query. Each line is either a
// where-index predicate expression (possibly containing parenthesized
// AND/OR groups) or one of the control lines (X-FROM, X-UNTIL, X-LIMIT,
// X-OFFSET, X-DISTINCT, X-TZID, X-ORDER-BY). Multiple where lines are
// AND-combined. A query with no X-LIMIT line gets the configured default
// limit.
func (x *Executor) Parse(input string) (*Query, error) {
	q := &Query{Limit: x.cfg.DefaultLimit}

	var whereNodes []where.Node
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		result := resolveLine(q, line)
		if result.IsError() {
			return nil, result.Error()
		}
		node, hasNode := result.MustGet().Get()
		if hasNode {
			whereNodes = append(whereNodes, node)
		}
	}

	q.Where = andAll(whereNodes)
	return q, nil
}

// resolveLine dispatches a single line to its control handler (which
// mutates q in place and resolves to mo.None) or to the where-expression
// parser (which resolves to mo.Some(node)); returning a monadic value
// from per-line resolution keeps the dispatch table flat.
func resolveLine(q *Query, line string) mo.Result[mo.Option[where.Node]] {
	none := mo.None[where.Node]()

	name := controlName(line)
	switch name {
	case "X-FROM", "X-UNTIL":
		bound, err := parseBoundLine(line)
		if err != nil {
			return mo.Err[mo.Option[where.Node]](err)
		}
		if name == "X-FROM" {
			q.LowerBound = bound
		} else {
			q.UpperBound = bound
		}
		return mo.Ok(none)

	case "X-LIMIT":
		n, err := parseControlInt(line)
		if err != nil {
			return mo.Err[mo.Option[where.Node]](err)
		}
		q.Limit = n
		return mo.Ok(none)

	case "X-OFFSET":
		n, err := parseControlInt(line)
		if err != nil {
			return mo.Err[mo.Option[where.Node]](err)
		}
		q.Offset = n
		return mo.Ok(none)

	case "X-DISTINCT":
		q.DistinctUIDs = true
		return mo.Ok(none)

	case "X-TZID":
		q.InTimezone = valueOf(line)
		return mo.Ok(none)

	case "X-ORDER-BY":
		if err := parseOrderBy(q, valueOf(line)); err != nil {
			return mo.Err[mo.Option[where.Node]](err)
		}
		return mo.Ok(none)
	}

	node, err := parseWhereLine(line)
	if err != nil {
		return mo.Err[mo.Option[where.Node]](err)
	}
	return mo.Ok(mo.Some(node))
}

func controlName(line string) string {
	head := line
	if i := strings.IndexAny(head, ";:"); i >= 0 {
		head = head[:i]
	}
	switch head {
	case "X-FROM", "X-UNTIL", "X-LIMIT", "X-OFFSET", "X-DISTINCT", "X-TZID", "X-ORDER-BY":
		return head
	default:
		return ""
	}
}

func valueOf(line string) string {
	i := strings.Index(line, ":")
	if i < 0 {
		return ""
	}
	return line[i+1:]
}

func andAll(nodes []where.Node) where.Node {
	if len(nodes) == 0 {
		return nil
	}
	result := nodes[0]
	for _, n := range nodes[1:] {
		result = where.Operator{L: result, R: n, Op: where.And}
	}
	return result
}

func parseControlInt(line string) (int, error) {
	v := valueOf(line)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, calerr.Wrap(calerr.ParseError, "malformed integer control value: "+line, err)
	}
	return n, nil
}

func parseOrderBy(q *Query, value string) error {
	parts := strings.Split(value, ";")
	switch parts[0] {
	case "DTSTART":
		q.Ordering = OrderDtStart
		return nil
	case "DTSTART-GEO-DIST":
		q.Ordering = OrderDtStartThenGeoDist
	case "GEO-DIST-DTSTART":
		q.Ordering = OrderGeoDistThenDtStart
	default:
		return calerr.New(calerr.ParseError, "unknown X-ORDER-BY value: "+value)
	}
	if len(parts) != 3 {
		return calerr.New(calerr.ParseError, "malformed X-ORDER-BY geo coordinates: "+value)
	}
	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return calerr.Wrap(calerr.ParseError, "malformed X-ORDER-BY latitude: "+value, err)
	}
	long, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return calerr.Wrap(calerr.ParseError, "malformed X-ORDER-BY longitude: "+value, err)
	}
	p, err := geo.NewPoint(lat, long)
	if err != nil {
		return err
	}
	q.OrderPoint = p
	return nil
}

const queryDateTimeLayout = "20060102T150405"

func parseDateTimeValue(value, tzid string) (int64, error) {
	if strings.HasSuffix(value, "Z") {
		t, err := time.ParseInLocation(queryDateTimeLayout+"Z", value, time.UTC)
		if err != nil {
			return 0, calerr.Wrap(calerr.ParseError, "malformed UTC date-time: "+value, err)
		}
		return t.Unix(), nil
	}
	loc := time.UTC
	if tzid != "" {
		l, err := time.LoadLocation(tzid)
		if err != nil {
			return 0, calerr.Wrap(calerr.ParseError, "unknown TZID: "+tzid, err)
		}
		loc = l
	}
	t, err := time.ParseInLocation(queryDateTimeLayout, value, loc)
	if err != nil {
		return 0, calerr.Wrap(calerr.ParseError, "malformed date-time: "+value, err)
	}
	return t.UTC().Unix(), nil
}

func parseBoundLine(line string) (*recurrence.Bound, error) {
	head, value, err := splitHeadValue(line)
	if err != nil {
		return nil, err
	}
	params := parseParams(head)

	var prop recurrence.BoundProperty
	switch params["PROP"] {
	case "DTSTART":
		prop = recurrence.DtStart
	case "DTEND":
		prop = recurrence.DtEnd
	default:
		return nil, calerr.New(calerr.ParseError, "missing/unknown PROP in range condition: "+line)
	}

	var kind recurrence.BoundKind
	switch params["OP"] {
	case "GT":
		kind = recurrence.GreaterThan
	case "GTE":
		kind = recurrence.GreaterEqualThan
	case "LT":
		kind = recurrence.LessThan
	case "LTE":
		kind = recurrence.LessEqualThan
	default:
		return nil, calerr.New(calerr.ParseError, "missing/unknown OP in range condition: "+line)
	}

	ts, err := parseDateTimeValue(value, params["TZID"])
	if err != nil {
		return nil, err
	}
	return &recurrence.Bound{Kind: kind, Property: prop, Timestamp: ts}, nil
}

// splitHeadValue splits "NAME;PARAM=V;...:value" into the head (name plus
// params) and the value.
func splitHeadValue(tok string) (head, value string, err error) {
	i := strings.Index(tok, ":")
	if i < 0 {
		return "", "", calerr.New(calerr.ParseError, "missing ':' in property token: "+tok)
	}
	return tok[:i], tok[i+1:], nil
}

// parseParams extracts NAME/PARAM=VALUE pairs from a head string
// "NAME;PARAM1=V1;PARAM2=V2", keyed by param name; the bare property name
// is available under the key "".
func parseParams(head string) map[string]string {
	parts := strings.Split(head, ";")
	out := map[string]string{"": parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 {
			out[kv[0]] = kv[1]
		}
	}
	return out
}

// tokenize splits a where-expression line into parens, AND/OR keywords,
// and property tokens, on whitespace with "(" and ")" split off as their
// own tokens.
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range line {
		switch {
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func parseWhereLine(line string) (where.Node, error) {
	tokens := tokenize(line)
	node, rest, err := parseExpr(tokens)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, calerr.New(calerr.ParseError, "unexpected trailing tokens: "+strings.Join(rest, " "))
	}
	return node, nil
}

// parseExpr parses a sequence of terms combined by explicit AND/OR
// tokens, defaulting to AND when no operator separates two terms.
func parseExpr(tokens []string) (where.Node, []string, error) {
	node, rest, err := parsePrimary(tokens)
	if err != nil {
		return nil, nil, err
	}
	for {
		if len(rest) == 0 || rest[0] == ")" {
			return node, rest, nil
		}
		op := where.And
		switch rest[0] {
		case "AND":
			rest = rest[1:]
		case "OR":
			op = where.Or
			rest = rest[1:]
		}
		right, remainder, err := parsePrimary(rest)
		if err != nil {
			return nil, nil, err
		}
		node = where.Operator{L: node, R: right, Op: op}
		rest = remainder
	}
}

func parsePrimary(tokens []string) (where.Node, []string, error) {
	if len(tokens) == 0 {
		return nil, nil, calerr.New(calerr.ParseError, "unexpected end of where-expression")
	}
	if tokens[0] == "(" {
		inner, rest, err := parseExpr(tokens[1:])
		if err != nil {
			return nil, nil, err
		}
		if len(rest) == 0 || rest[0] != ")" {
			return nil, nil, calerr.New(calerr.ParseError, "unbalanced '(' in where-expression")
		}
		return where.Group{Inner: inner}, rest[1:], nil
	}
	node, err := parsePropertyToken(tokens[0])
	if err != nil {
		return nil, nil, err
	}
	return node, tokens[1:], nil
}

func parsePropertyToken(tok string) (where.Node, error) {
	head, value, err := splitHeadValue(tok)
	if err != nil {
		return nil, err
	}
	params := parseParams(head)
	name := params[""]

	multiOp := where.Or
	if params["OP"] == "AND" {
		multiOp = where.And
	}

	switch name {
	case "X-UID":
		return where.Property{Kind: where.UID, UIDValue: value}, nil

	case "X-CATEGORIES":
		return multiValueNode(where.Categories, splitValues(value), multiOp, ""), nil

	case "X-LOCATION-TYPE":
		return multiValueNode(where.LocationType, splitValues(value), multiOp, ""), nil

	case "X-CLASS":
		return multiValueNode(where.Class, splitValues(value), multiOp, ""), nil

	case "X-RELATED-TO":
		relType := params["RELTYPE"]
		if relType == "" {
			relType = "PARENT"
		}
		return multiValueNode(where.RelatedTo, splitValues(value), multiOp, relType), nil

	case "X-GEO":
		distStr := params["DIST"]
		dist, err := parseDistance(distStr)
		if err != nil {
			return nil, err
		}
		latLong := strings.SplitN(value, ";", 2)
		if len(latLong) != 2 {
			return nil, calerr.New(calerr.ParseError, "malformed X-GEO value: "+tok)
		}
		lat, err := strconv.ParseFloat(latLong[0], 64)
		if err != nil {
			return nil, calerr.Wrap(calerr.ParseError, "malformed X-GEO latitude: "+tok, err)
		}
		long, err := strconv.ParseFloat(latLong[1], 64)
		if err != nil {
			return nil, calerr.Wrap(calerr.ParseError, "malformed X-GEO longitude: "+tok, err)
		}
		p, err := geo.NewPoint(lat, long)
		if err != nil {
			return nil, err
		}
		return where.Property{Kind: where.Geo, GeoPoint: p, GeoDistance: dist}, nil

	default:
		return nil, calerr.New(calerr.ParseError, "unrecognized where-predicate: "+tok)
	}
}

func parseDistance(s string) (geo.Distance, error) {
	unit := geo.KM
	numeric := s
	switch {
	case strings.HasSuffix(s, "KM"):
		numeric = strings.TrimSuffix(s, "KM")
	case strings.HasSuffix(s, "MI"):
		unit = geo.MI
		numeric = strings.TrimSuffix(s, "MI")
	default:
		return geo.Distance{}, calerr.New(calerr.ParseError, "malformed DIST parameter: "+s)
	}
	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return geo.Distance{}, calerr.Wrap(calerr.ParseError, "malformed DIST parameter: "+s, err)
	}
	return geo.NewDistance(v, unit), nil
}

func splitValues(value string) []string {
	return strings.Split(value, ",")
}

func multiValueNode(kind where.PropertyKind, values []string, op where.LogicalOp, relType string) where.Node {
	var nodes []where.Node
	for _, v := range values {
		switch kind {
		case where.RelatedTo:
			nodes = append(nodes, where.Property{Kind: kind, RelKey: event.RelatedToKey{RelType: relType, UID: v}})
		default:
			nodes = append(nodes, where.Property{Kind: kind, Term: v})
		}
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	result := nodes[0]
	for _, n := range nodes[1:] {
		result = where.Operator{L: result, R: n, Op: op}
	}
	return result
}
