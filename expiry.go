package scopecache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type expiryKind uint8

const (
	expiryDefault expiryKind = iota // zero value: use the configured default
	expiryPersist
	expiryTTL
	expiryRelative
	expiryAbsolute
)

// Expiry selects when a written entry expires. The zero value means "use the
// adapter's configured DefaultExpiry". Construct the other variants with
// Persist, TTL, In or At.
type Expiry struct {
	kind expiryKind
	d    time.Duration
	at   time.Time
	expr string
}

// Persist never expires the entry. Distinct from the zero value: a persisted
// write ignores the configured default.
func Persist() Expiry { return Expiry{kind: expiryPersist} }

// TTL expires the entry d after the write executes. d <= 0 follows the
// backend convention and persists.
func TTL(d time.Duration) Expiry { return Expiry{kind: expiryTTL, d: d} }

// In expires the entry at the instant described by a relative expression such
// as "+1 hour", "+90 seconds" or "+1 day 12 hours", resolved against the
// clock at execute time. A malformed expression is a configuration error and
// is reported when the handle is built, never as a runtime cache miss.
func In(expr string) Expiry { return Expiry{kind: expiryRelative, expr: expr} }

// At expires the entry at the absolute instant t. An instant already in the
// past resolves to a negative TTL; the write path then unsets the key instead
// of storing an already-dead value.
func At(t time.Time) Expiry { return Expiry{kind: expiryAbsolute, at: t} }

func (e Expiry) validate() error {
	if e.kind != expiryRelative {
		return nil
	}
	_, err := parseRelative(e.expr)
	return err
}

// effective substitutes the configured default for the zero value.
func (e Expiry) effective(def Expiry) Expiry {
	if e.kind == expiryDefault {
		return def
	}
	return e
}

// computed reports whether the resolved TTL depends on "now" (relative or
// absolute variants). Only computed expiries can legitimately produce a
// zero-or-negative TTL meaning "already expired"; for the other variants a
// zero TTL always means persist.
func (e Expiry) computed() bool {
	return e.kind == expiryRelative || e.kind == expiryAbsolute
}

// Resolve normalizes e to a backend TTL given the configured default and a
// fixed now. Pure: no clock reads, no backend calls, no retries.
//
//	zero value  -> def resolved; no default configured => 0 (persist)
//	Persist     -> 0
//	TTL(d)      -> d (d <= 0 => 0)
//	In(expr)    -> resolveAbsolute(expr, now) - now
//	At(t)       -> t - now (negative when t is past)
func (e Expiry) Resolve(def Expiry, now time.Time) (time.Duration, error) {
	switch e.kind {
	case expiryDefault:
		if def.kind == expiryDefault {
			return 0, nil
		}
		return def.Resolve(Expiry{}, now)
	case expiryPersist:
		return 0, nil
	case expiryTTL:
		if e.d <= 0 {
			return 0, nil
		}
		return e.d, nil
	case expiryRelative:
		rel, err := parseRelative(e.expr)
		if err != nil {
			return 0, err
		}
		target := now.AddDate(rel.years, rel.months, rel.days).Add(rel.dur)
		return target.Sub(now), nil
	case expiryAbsolute:
		return e.at.Sub(now), nil
	default:
		return 0, fmt.Errorf("scopecache: unknown expiry kind %d", e.kind)
	}
}

// relAmount is a parsed relative expression. Calendar units (days and up) are
// kept separate so resolution can use AddDate and stay correct across DST and
// month-length boundaries.
type relAmount struct {
	years  int
	months int
	days   int
	dur    time.Duration
}

// parseRelative parses expressions of the form "[+]N unit [[+]N unit ...]".
// Units: sec(ond), min(ute), hour, day, week, month, year - singular or
// plural. Numbers may be negative.
func parseRelative(expr string) (relAmount, error) {
	var out relAmount
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return out, &ExpiryError{Expr: expr, Err: errors.New("empty expression")}
	}
	if len(fields)%2 != 0 {
		return out, &ExpiryError{Expr: expr, Err: errors.New("expected number/unit pairs")}
	}
	for i := 0; i < len(fields); i += 2 {
		n, err := strconv.Atoi(strings.TrimPrefix(fields[i], "+"))
		if err != nil {
			return relAmount{}, &ExpiryError{Expr: expr, Err: fmt.Errorf("bad amount %q", fields[i])}
		}
		unit := strings.TrimSuffix(strings.ToLower(fields[i+1]), "s")
		switch unit {
		case "sec", "second":
			out.dur += time.Duration(n) * time.Second
		case "min", "minute":
			out.dur += time.Duration(n) * time.Minute
		case "hour":
			out.dur += time.Duration(n) * time.Hour
		case "day":
			out.days += n
		case "week":
			out.days += 7 * n
		case "month":
			out.months += n
		case "year":
			out.years += n
		default:
			return relAmount{}, &ExpiryError{Expr: expr, Err: fmt.Errorf("unknown unit %q", fields[i+1])}
		}
	}
	return out, nil
}
